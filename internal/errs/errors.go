package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals a state precondition that no longer holds, e.g. settling
	// an obligation that is not pending anymore.
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrReference is returned when a referenced record (account, person, category...)
	// does not exist for the tenant or is not usable in this position.
	ErrReference = errors.New("invalid_reference")
)

// Error carries a client-facing message and unwraps to one of the sentinels above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func Invalid(msg string) error   { return &Error{Kind: ErrInvalid, Msg: msg} }
func Reference(msg string) error { return &Error{Kind: ErrReference, Msg: msg} }
func Conflict(msg string) error  { return &Error{Kind: ErrConflict, Msg: msg} }
func NotFound(msg string) error  { return &Error{Kind: ErrNotFound, Msg: msg} }
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }

// Message returns the client-facing text of err when it is an *Error, otherwise fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return fallback
}
