package auth

import "errors"

// Kind classifies the failures this package reports to callers.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindInvalidLink
	KindExpiredLink
	KindSessionNotFound
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidLink:
		return "invalid_link"
	case KindExpiredLink:
		return "expired_link"
	case KindSessionNotFound:
		return "session_not_found"
	case KindSessionExpired:
		return "session_expired"
	}
	return "unknown"
}

// Error is a tagged failure. Message is safe to show to end users.
// Two Errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput    = &Error{Kind: KindInvalidInput, Message: "Invalid input."}
	ErrInvalidLink     = &Error{Kind: KindInvalidLink, Message: "Invalid magic link."}
	ErrExpiredLink     = &Error{Kind: KindExpiredLink, Message: "Magic link expired. Please request a new one."}
	ErrSessionNotFound = &Error{Kind: KindSessionNotFound, Message: "No user found"}
	ErrSessionExpired  = &Error{Kind: KindSessionExpired, Message: "Session expired. Please request a new magic link."}
)

func invalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns the user-facing message for err. Errors outside the
// taxonomy get a generic message so internal details never leak.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong. Please try again."
}
