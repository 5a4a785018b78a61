package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/logging"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	ErrCodeApprovalPending         = "APPROVAL_PENDING"
	ErrCodeTrialExpired            = "TRIAL_EXPIRED"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeLockHeld      = "LOCK_HELD"

	// Workflow errors
	ErrCodeAlreadyClaimed    = "ALREADY_CLAIMED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeNotAssignee       = "NOT_ASSIGNEE"

	// Business logic errors
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
)

// Kind classifies domain errors so the request boundary can map them to a
// status code without knowing every sentinel.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthorization
	KindNotFound
	KindUnauthenticated
	KindUnavailable
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	kind Kind
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Kind returns the error classification.
func (e *APIError) Kind() Kind {
	return e.kind
}

// Is matches errors with the same kind and code, so predefined errors work
// with errors.Is even when copied with details.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.kind == t.kind && e.Code == t.Code
}

// WithDetails returns a copy of the error carrying details.
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of the error with a different message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

func newKinded(kind Kind, code, message string) *APIError {
	return &APIError{Code: code, Message: message, kind: kind}
}

// Validation reports malformed or missing input.
func Validation(message string) *APIError {
	return newKinded(KindValidation, ErrCodeInvalidInput, message)
}

// Conflict reports a failed state precondition caused by concurrent modification.
func Conflict(message string) *APIError {
	return newKinded(KindConflict, ErrCodeConflict, message)
}

// Forbidden reports that the caller's role lacks permission.
func Forbidden(message string) *APIError {
	return newKinded(KindAuthorization, ErrCodeForbidden, message)
}

// NotFound reports a missing or out-of-tenant resource. The two cases are
// deliberately indistinguishable.
func NotFound(message string) *APIError {
	return newKinded(KindNotFound, ErrCodeNotFound, message)
}

// Unauthenticated reports a missing or invalid session.
func Unauthenticated(message string) *APIError {
	return newKinded(KindUnauthenticated, ErrCodeUnauthorized, message)
}

// Unavailable reports a disabled or unreachable dependency.
func Unavailable(message string) *APIError {
	return newKinded(KindUnavailable, ErrCodeServiceUnavailable, message)
}

// Coded builds a kinded error with a custom code.
func Coded(kind Kind, code, message string) *APIError {
	return newKinded(kind, code, message)
}

// Predefined errors
var (
	ErrUnauthorized  = Unauthenticated("Authentication required")
	ErrInternalError = newKinded(KindInternal, ErrCodeInternalError, "Internal server error")
)

// KindOf returns the kind of the first APIError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.kind
	}
	return KindInternal
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a structured error response. Errors without a kind
// are logged and reported as a generic internal error.
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.kind != KindInternal {
		RespondWithError(c, StatusFor(apiErr.kind), apiErr)
		return
	}

	logging.FromContext(c).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	RespondWithError(c, http.StatusInternalServerError, ErrInternalError)
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Helper functions for responses outside the kinded mapping

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	err := ErrUnauthorized
	if message != "" {
		err = err.WithMessage(message)
	}
	RespondWithError(c, http.StatusUnauthorized, err)
}

// InternalError sends a 500 response without logging; callers log the cause.
func InternalError(c *gin.Context, message string) {
	err := ErrInternalError
	if message != "" {
		err = err.WithMessage(message)
	}
	RespondWithError(c, http.StatusInternalServerError, err)
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "Rate limit exceeded"
	}
	RespondWithError(c, http.StatusTooManyRequests, Coded(KindConflict, ErrCodeTooManyRequests, message))
}
