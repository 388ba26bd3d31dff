package service

import "errors"

// Error kinds. Use errors.Is to classify an error returned by a service.
var (
	ErrValidation = errors.New("validation")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("unauthenticated")
	ErrNotFound   = errors.New("not found")
)

// Messages shown to API clients.
const (
	MsgMissingFields      = "Missing fields"
	MsgPhoneTaken         = "Phone number already registered"
	MsgInvalidCredentials = "Invalid credentials"
	MsgNotAuthenticated   = "Not authenticated"
	MsgNotFound           = "Not found"
	MsgUserNotFound       = "User not found"
)

// Error is a classified failure with a message safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool { return target == e.Kind }

func validationError(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }
func conflictError(msg string) error   { return &Error{Kind: ErrConflict, Message: msg} }
func authError(msg string) error       { return &Error{Kind: ErrAuth, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: ErrNotFound, Message: msg} }
