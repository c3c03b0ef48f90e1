package models

import (
	"errors"
	"fmt"
)

// Downstream call failures, wrapped by the messaging client. Callers decide
// which higher-level failure they translate into.
var (
	ErrDownstreamTimeout     = errors.New("downstream call timed out")
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
)

// ServiceError is the structured failure shape every inbound caller sees:
// a transport-agnostic status code plus a human-readable message. Internal
// errors are wrapped, not exposed.
type ServiceError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	cause      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewValidationError rejects malformed input before orchestration runs.
func NewValidationError(message string) *ServiceError {
	return &ServiceError{StatusCode: 400, Message: message}
}

// NewProductValidationError signals that one or more requested products are
// unknown or unavailable; nothing has been persisted.
func NewProductValidationError(message string, cause error) *ServiceError {
	return &ServiceError{StatusCode: 400, Message: message, cause: cause}
}

// NewOrderNotFoundError signals a read or update on an unknown order id.
func NewOrderNotFoundError(id string) *ServiceError {
	return &ServiceError{StatusCode: 404, Message: fmt.Sprintf("order with id %s not found", id)}
}

// NewPersistenceError signals that the store rejected a write; nothing was
// committed and the caller may retry the whole request.
func NewPersistenceError(cause error) *ServiceError {
	return &ServiceError{StatusCode: 500, Message: "order could not be persisted", cause: cause}
}

// NewPaymentSessionError signals that the payment provider call failed after
// the order was persisted. The order stays PENDING; the caller retries
// session acquisition, not order creation.
func NewPaymentSessionError(orderID string, cause error) *ServiceError {
	return &ServiceError{
		StatusCode: 502,
		Message:    fmt.Sprintf("payment session for order %s could not be created", orderID),
		cause:      cause,
	}
}

// NewDownstreamError surfaces a collaborator failure when no more specific
// kind applies. Timeouts map to 504, everything else to 502.
func NewDownstreamError(cause error) *ServiceError {
	code := 502
	if errors.Is(cause, ErrDownstreamTimeout) {
		code = 504
	}
	return &ServiceError{StatusCode: code, Message: cause.Error(), cause: cause}
}

// AsServiceError converts any error into the structured shape, defaulting to
// an internal error so raw internals never cross the boundary.
func AsServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &ServiceError{StatusCode: 500, Message: "internal error", cause: err}
}
