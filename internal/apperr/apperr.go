package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the operation boundary.
type Kind int

const (
	// Unexpected covers storage and other internal failures.
	Unexpected Kind = iota
	// Validation means malformed or missing input.
	Validation
	// Conflict means a uniqueness violation.
	Conflict
	// Authentication means bad credentials or no session.
	Authentication
	// Authorization means an authenticated caller with insufficient role or ownership.
	Authorization
	// NotFound means a referenced entity is absent.
	NotFound
)

// Error carries a kind plus a caller-safe message. Internal detail, if
// any, hangs off the wrapped cause and stays out of responses.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an Error; the cause never reaches the caller.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// KindOf extracts the kind of err, defaulting to Unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// Is reports whether err is an Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// PublicMessage returns the message safe to show callers. Unexpected
// errors are masked; detail belongs in the server log.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Unexpected {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps an error to its HTTP status equivalent.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
