package domain

import "errors"

// Error kinds. Every error returned by the service layer unwraps to exactly
// one of these, which is what the HTTP layer switches on.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrExternalService = errors.New("external service failure")
)

var (
	ErrInvalidClientKey     = kindError(ErrInvalidInput, "claveCliente is required")
	ErrInvalidName          = kindError(ErrInvalidInput, "nombre must not be empty")
	ErrInvalidPhone         = kindError(ErrInvalidInput, "celular must contain exactly 10 numeric digits")
	ErrInvalidEmail         = kindError(ErrInvalidInput, "email address is not valid")
	ErrInvalidCharacterIcon = kindError(ErrInvalidInput, "invalid characterIcon")
	ErrInvalidUsername      = kindError(ErrInvalidInput, "username must not be empty")
	ErrInvalidPassword      = kindError(ErrInvalidInput, "password does not meet the minimum policy")
	ErrInvalidPage          = kindError(ErrInvalidInput, "page is out of range")

	ErrNoPages        = kindError(ErrNotFound, "no pages available")
	ErrClientNotFound = kindError(ErrNotFound, "client does not exist")
	ErrUserNotFound   = kindError(ErrNotFound, "user does not exist")

	ErrClientExists = kindError(ErrConflict, "client already exists")
	ErrEmailTaken   = kindError(ErrConflict, "email already registered")

	ErrWrongPassword = kindError(ErrUnauthorized, "incorrect password")
	ErrInvalidToken  = kindError(ErrUnauthorized, "invalid or expired token")
)

// namedError is a sentinel that also matches its kind under errors.Is.
type namedError struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &namedError{kind: kind, msg: msg}
}

func (e *namedError) Error() string { return e.msg }

func (e *namedError) Unwrap() error { return e.kind }
