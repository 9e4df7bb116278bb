// Package reference encodes checkout plan identifiers into the external
// reference carried by a preference and decodes them back from payments.
package reference

import (
	"regexp"
	"strings"
)

const (
	prefix    = "plan"
	delimiter = "_"
)

var (
	referencePattern = regexp.MustCompile(`^plan_([^_]+)_(.+)$`)
	noncePattern     = regexp.MustCompile(`^\d+(-[0-9a-f]+)?$`)
)

// Encode builds plan_<planID>_<nonce>. planID must not contain the delimiter.
func Encode(planID, nonce string) string {
	return prefix + delimiter + planID + delimiter + nonce
}

// Decode extracts the plan id from an external reference.
// ok is false for malformed or foreign references; Decode never fails otherwise.
func Decode(ref string) (planID string, ok bool) {
	m := referencePattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return "", false
	}
	if !noncePattern.MatchString(m[2]) {
		return "", false
	}
	return m[1], true
}

// ValidPlanID reports whether planID can be round-tripped through Encode/Decode.
func ValidPlanID(planID string) bool {
	return planID != "" && !strings.Contains(planID, delimiter)
}
