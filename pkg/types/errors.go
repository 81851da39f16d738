package types

import (
	"errors"
	"fmt"
)

// Repository and backup errors.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat reports a malformed or wrong-version backup envelope.
	ErrInvalidFormat = errors.New("invalid backup format")

	// ErrDestructiveOperationBlocked reports a replace import attempted
	// without explicit confirmation.
	ErrDestructiveOperationBlocked = errors.New("replace import requires confirmation")
)

// ValidationError reports malformed input to a repository call.
type ValidationError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Is makes errors.Is(err, ErrValidation) true for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a *ValidationError for field.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
