package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers classify with errors.Is; wrapped errors carry the
// user-facing message in their text.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUpstream          = errors.New("upstream failure")
	ErrInvalidCredential = errors.New("invalid otp")
	ErrExpired           = errors.New("otp expired")

	ErrMissingTokens    = fmt.Errorf("%w: access and refresh tokens are required", ErrUnauthorized)
	ErrInvalidToken     = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	ErrIdentityMismatch = fmt.Errorf("%w: token subjects do not match", ErrUnauthorized)
	ErrTokenMismatch    = fmt.Errorf("%w: refresh token has been superseded", ErrConflict)
	ErrAccountNotFound  = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrSigningFailure   = errors.New("token signing failed")
)

// kindError carries a user-facing message tagged with one of the kinds
// above, so errors.Is(err, kind) holds.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func badRequest(msg string) error { return newError(ErrBadRequest, msg) }

func upstream(msg string, err error) error {
	return &kindError{kind: ErrUpstream, msg: fmt.Sprintf("%s: %v", msg, err)}
}
