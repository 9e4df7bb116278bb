package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// WebhookValidator checks the x-signature header Mercado Pago attaches to notifications.
type WebhookValidator struct {
	secret []byte
}

// NewWebhookValidator creates a validator for the application's webhook secret.
func NewWebhookValidator(secret string) *WebhookValidator {
	return &WebhookValidator{secret: []byte(secret)}
}

// ValidateSignature reports whether xSignature (ts=<ts>,v1=<hex>) is the
// HMAC-SHA256 of the manifest id:<data.id>;request-id:<x-request-id>;ts:<ts>;
// Parts whose value is absent are left out of the manifest.
func (v *WebhookValidator) ValidateSignature(xSignature, xRequestID, dataID string) bool {
	if xSignature == "" || len(v.secret) == 0 {
		return false
	}

	ts, hash := parseSignatureHeader(xSignature)
	if ts == "" || hash == "" {
		return false
	}

	expected := Sign(v.secret, Manifest(dataID, xRequestID, ts))
	return hmac.Equal([]byte(strings.ToLower(hash)), []byte(expected))
}

func parseSignatureHeader(header string) (ts, hash string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			hash = strings.TrimSpace(value)
		}
	}
	return ts, hash
}

// Manifest builds the string Mercado Pago signs. Alphanumeric data ids are
// lowercased before signing.
func Manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

// Sign returns the hex HMAC-SHA256 of manifest.
func Sign(secret []byte, manifest string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(manifest))
	return hex.EncodeToString(h.Sum(nil))
}
