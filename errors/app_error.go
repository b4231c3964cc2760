// errors/app_error.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/cardlyhq/cardly/model"
)

// ErrorType classifies a failure for propagation policy decisions.
type ErrorType string

const (
	TypeNetwork              ErrorType = "network"
	TypeTimeout              ErrorType = "timeout"
	TypeAuth                 ErrorType = "auth"
	TypeValidation           ErrorType = "validation"
	TypeNotFound             ErrorType = "notfound"
	TypeServer               ErrorType = "server"
	TypeSubscriptionRequired ErrorType = "subscription_required"
	TypePermissionDenied     ErrorType = "permission_denied"
)

// AppError is the structured error carried across the subsystem instead
// of enriched ad hoc values. Network and server failures are retryable;
// business-rule denials carry the metadata a caller needs to render a
// precise message or an upgrade prompt without string matching.
type AppError struct {
	Type          ErrorType               `json:"type"`
	Code          model.DecisionCode      `json:"code,omitempty"`
	Message       string                  `json:"message"`
	Retry         bool                    `json:"retry"`
	RequiredLevel model.SubscriptionLevel `json:"required_level,omitempty"`
	LimitReached  bool                    `json:"limit_reached,omitempty"`
	cause         error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Retryable reports whether the caller may safely retry the operation.
func Retryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retry
	}
	return false
}

func NewValidation(message string) *AppError {
	return &AppError{Type: TypeValidation, Message: message}
}

func NewNotFound(message string, cause error) *AppError {
	return &AppError{Type: TypeNotFound, Message: message, cause: cause}
}

func NewAuth(message string) *AppError {
	return &AppError{Type: TypeAuth, Message: message}
}

func NewNetwork(cause error) *AppError {
	return &AppError{Type: TypeNetwork, Message: "network error, please try again", Retry: true, cause: cause}
}

func NewTimeout(cause error) *AppError {
	return &AppError{Type: TypeTimeout, Message: "request timed out", cause: cause}
}

func NewServer(message string, cause error) *AppError {
	if message == "" {
		message = "server error, please try again"
	}
	return &AppError{Type: TypeServer, Message: message, Retry: true, cause: cause}
}

// FromDecision converts a denied gate decision into the matching typed
// error. Allowed decisions have no error form.
func FromDecision(d model.OperationDecision) *AppError {
	if d.Allowed {
		return nil
	}
	appErr := &AppError{
		Code:          d.Code,
		Message:       d.Reason,
		RequiredLevel: d.RequiredLevel,
		LimitReached:  d.LimitReached,
	}
	switch d.Code {
	case model.CodeSubscriptionRequired, model.CodeFeatureNotAvailable,
		model.CodeTeamLimitReached, model.CodeMemberLimitReached:
		appErr.Type = TypeSubscriptionRequired
	case model.CodeUserNotFound:
		appErr.Type = TypeNotFound
	default:
		appErr.Type = TypePermissionDenied
	}
	return appErr
}

// FromStatusCode classifies an HTTP response from a collaborator.
func FromStatusCode(status int, message string) *AppError {
	switch {
	case status == http.StatusBadRequest:
		return NewValidation(message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuth(message)
	case status == http.StatusNotFound:
		return NewNotFound(message, nil)
	case status >= 500:
		return NewServer(message, nil)
	default:
		return &AppError{Type: TypeServer, Message: message}
	}
}

// Translate normalizes any error into an AppError. Already-typed errors
// pass through untouched; context and transport failures map onto the
// timeout/network classes; known sentinels map to notfound; everything
// else is treated as a server failure.
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTimeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewTimeout(err)
		}
		return NewNetwork(err)
	}
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrOrganizationNotFound) {
		return NewNotFound(err.Error(), err)
	}
	return NewServer("", err)
}

// HTTPStatus maps an AppError to the status code the HTTP surface
// should respond with.
func HTTPStatus(err *AppError) int {
	switch err.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuth:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypePermissionDenied:
		return http.StatusForbidden
	case TypeSubscriptionRequired:
		return http.StatusPaymentRequired
	case TypeTimeout:
		return http.StatusGatewayTimeout
	case TypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
