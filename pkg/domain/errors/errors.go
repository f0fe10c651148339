package errors

import (
	"errors"
	"fmt"

	xe "github.com/opst/wlconf/pkg/errors"
)

type wrappingError struct {
	message  string
	causedBy error
}

func as[E error](err error) bool {
	if err == nil {
		return false
	}
	p := new(E)
	return errors.As(err, p)
}

func format(e wrappingError) string {
	if e.causedBy == nil {
		return e.message
	}
	if e.message == "" {
		return fmt.Sprintf("caused by: %+v", e.causedBy)
	}

	return fmt.Sprintf("%s / caused by: %+v", e.message, e.causedBy)
}

// Requested resource (or rollback record) does not exist.
type ErrMissing wrappingError

var AsMissing = as[*ErrMissing]

func NewMissing(message string) error {
	return xe.WrapAsOuter(&ErrMissing{message: message}, 1)
}

func NewMissingCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrMissing{message: message, causedBy: err}, 1)
}

func (e *ErrMissing) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrMissing) Unwrap() error {
	return e.causedBy
}

// Resource kind is not one of the managed kinds.
type ErrUnsupported wrappingError

var AsUnsupported = as[*ErrUnsupported]

func NewUnsupported(message string) error {
	return xe.WrapAsOuter(&ErrUnsupported{message: message}, 1)
}

func (e *ErrUnsupported) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrUnsupported) Unwrap() error {
	return e.causedBy
}

// The cluster rejected a write because the resource has been modified since it was read.
//
// It is never retried. Callers should refetch and resubmit.
type ErrConflict wrappingError

var AsConflict = as[*ErrConflict]

func NewConflictCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrConflict{message: message, causedBy: err}, 1)
}

func (e *ErrConflict) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrConflict) Unwrap() error {
	return e.causedBy
}

// Transport or cluster-side failure. The reason is passed through as is.
type ErrCollaborator wrappingError

var AsCollaborator = as[*ErrCollaborator]

func NewCollaboratorCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrCollaborator{message: message, causedBy: err}, 1)
}

func (e *ErrCollaborator) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrCollaborator) Unwrap() error {
	return e.causedBy
}
