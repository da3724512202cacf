package model

import "errors"

// ValidationError marks caller-supplied input as unusable. It is
// surfaced directly, never retried, and commits no partial state.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
