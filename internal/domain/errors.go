package domain

import "errors"

// Error kinds surfaced by every public chat operation. The transport layer
// maps them to status codes; callers match with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

// Error is a classified failure: Kind is one of the sentinels above, Msg is
// safe to show to clients, Err is the underlying cause (kept for logs).
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the kind of err, or ErrInternal when err is unclassified.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrBadRequest, ErrForbidden, ErrConflict, ErrInternal} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}
