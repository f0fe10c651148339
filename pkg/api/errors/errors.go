// Package errors builds HTTP errors of the API.
//
// Errors are *echo.HTTPError, and their bodies are ErrorMessage as JSON.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	derr "github.com/opst/wlconf/pkg/domain/errors"
	xe "github.com/opst/wlconf/pkg/errors"
)

type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
	Cause  error  `json:"-"`
}

func (em ErrorMessage) Error() string {
	msg := em.Reason
	if em.Advice != "" {
		msg += " (" + em.Advice + ")"
	}
	if em.Cause != nil {
		msg += fmt.Sprintf(": caused by %v", em.Cause)
	}
	return msg
}

func (em ErrorMessage) Unwrap() error {
	return em.Cause
}

type ErrorMessageOption func(in *ErrorMessage) *ErrorMessage

func WithAdvice(advice string) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if advice != "" {
			in.Advice = advice
		}
		return in
	}
}

func WithError(err error) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = *opt(&msg)
	}
	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func BadRequest(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadRequest, "bad request",
		WithAdvice(advice), WithError(err),
	)
}

func Unauthorized(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusUnauthorized, "unauthorized",
		WithAdvice(advice), WithError(err),
	)
}

func NotFound(reason string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, reason, WithError(err))
}

func Conflict(reason string, options ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, reason, options...)
}

func BadGateway(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadGateway, "cluster is unavailable",
		WithAdvice("retry later. if it persists, ask your system admin."),
		WithError(err),
	)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusInternalServerError, "unexpected error",
		WithAdvice("ask your system admin."),
		WithError(err),
	)
}

// FromError translates errors from the engine into HTTP errors.
//
// The reason of the message is the innermost error message, without locations.
func FromError(err error) *echo.HTTPError {
	switch {
	case err == nil:
		return nil
	case derr.AsMissing(err):
		return NotFound(xe.Message(err), err)
	case derr.AsUnsupported(err):
		return NewErrorMessage(
			http.StatusBadRequest, xe.Message(err),
			WithAdvice("supported types are deployment, service, daemonset and statefulset."),
			WithError(err),
		)
	case derr.AsConflict(err):
		return Conflict(
			xe.Message(err),
			WithAdvice("the resource has been modified. fetch it again and retry."),
			WithError(err),
		)
	case derr.AsCollaborator(err):
		return BadGateway(err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorMessage(
			http.StatusGatewayTimeout, "cluster did not respond in time",
			WithAdvice("retry later."),
			WithError(err),
		)
	}
	return InternalServerError(err)
}
