package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindCollaborator Kind = "collaborator"
	KindFatal        Kind = "fatal"
)

// Error is a classified engine error. Two errors match under errors.Is when
// their codes are equal, so sentinels survive wrapping with fmt.Errorf("%w").
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap annotates a sentinel with context while keeping it matchable.
func Wrap(sentinel *Error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// KindOf reports the kind of the first classified error in err's chain.
// Unclassified errors are treated as collaborator failures (storage, network).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindCollaborator
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindCollaborator || k == KindConflict
}

var (
	ErrNotFound   = New(KindNotFound, "NOT_FOUND", "resource not found")
	ErrForbidden  = New(KindUnauthorized, "FORBIDDEN", "actor is not allowed to perform this operation")
	ErrStaleWrite = New(KindConflict, "STALE_WRITE", "entity was modified concurrently")
	ErrDuplicate  = New(KindConflict, "DUPLICATE", "entity already exists")
)
