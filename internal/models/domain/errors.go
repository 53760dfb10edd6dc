package domain

import "fmt"

// Kind is the machine-readable category of a domain error.
type Kind string

const (
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindForbidden              Kind = "FORBIDDEN"
	KindNotFound               Kind = "NOT_FOUND"
	KindInvalidScore           Kind = "INVALID_SCORE"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindValidation             Kind = "VALIDATION_ERROR"
	KindCriteriaNotInContest   Kind = "CRITERIA_NOT_IN_CONTEST"
)

// Error is a rule violation that is safe to show to API clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches sentinels by kind, so errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidScore           = &Error{Kind: KindInvalidScore}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrCriteriaNotInContest   = &Error{Kind: KindCriteriaNotInContest}
)

// Errorf builds a domain error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound is a shorthand for a not-found error naming the missing entity.
func NotFound(entity string) error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}
