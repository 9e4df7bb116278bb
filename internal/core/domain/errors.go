// Package domain contains the core business entities for the payment service.
package domain

import (
	"errors"
	"net/http"
)

// Domain errors - represent business rule violations.
var (
	// ErrInvalidRequest is returned for malformed purchase intents or events.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPaymentGatewayError is returned when Mercado Pago rejects a request.
	ErrPaymentGatewayError = errors.New("payment gateway error")

	// ErrGatewayUnavailable is returned when Mercado Pago times out or is unreachable.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotFound is returned when the gateway has no payment for an id.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrWebhookValidationFailed is returned when x-signature is invalid.
	ErrWebhookValidationFailed = errors.New("webhook signature validation failed")

	// ErrTransitionInFlight is returned when another delivery holds the claim
	// for the same transition and has not finished yet.
	ErrTransitionInFlight = errors.New("transition already in flight")

	// ErrTransitionAlreadyApplied is returned when the same (payment, status)
	// transition was recorded by an earlier or concurrent delivery.
	ErrTransitionAlreadyApplied = errors.New("transition already applied")

	// ErrTerminalStatus is returned when a payment already settled in a
	// terminal status and the transition would move it elsewhere.
	ErrTerminalStatus = errors.New("payment already in a terminal status")
)

// Code classifies a ServiceError for callers and the HTTP boundary.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
	CodeGatewayError       Code = "GATEWAY_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidSignature   Code = "INVALID_SIGNATURE"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// CodeMetadata describes how a code surfaces outside the core.
type CodeMetadata struct {
	HTTPStatus int
	Retryable  bool
}

var metadataByCode = map[Code]CodeMetadata{
	CodeValidation:         {HTTPStatus: http.StatusBadRequest},
	CodeGatewayUnavailable: {HTTPStatus: http.StatusServiceUnavailable, Retryable: true},
	CodeGatewayError:       {HTTPStatus: http.StatusBadGateway},
	CodeNotFound:           {HTTPStatus: http.StatusNotFound},
	CodeInvalidSignature:   {HTTPStatus: http.StatusUnauthorized},
	CodeInternal:           {HTTPStatus: http.StatusInternalServerError, Retryable: true},
}

// MetadataFor returns the metadata for code, defaulting to CodeInternal.
func MetadataFor(code Code) CodeMetadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// ServiceError wraps errors with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    Code
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(err error, message string, code Code) *ServiceError {
	return &ServiceError{Err: err, Message: message, Code: code}
}

// AsServiceError extracts a ServiceError from err's chain, or nil.
func AsServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// CodeOf returns the code carried by err, CodeInternal when it has none.
func CodeOf(err error) Code {
	if svcErr := AsServiceError(err); svcErr != nil {
		return svcErr.Code
	}
	return CodeInternal
}

// PreferenceOutcomeOf names the preference-creation result variant for err.
func PreferenceOutcomeOf(err error) string {
	if err == nil {
		return "created"
	}
	switch CodeOf(err) {
	case CodeValidation:
		return "validation_failed"
	case CodeGatewayUnavailable:
		return "gateway_unavailable"
	case CodeGatewayError:
		return "gateway_error"
	default:
		return "internal_error"
	}
}
