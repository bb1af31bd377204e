package envfile

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrEmptyInput    = errors.New("settings file is empty")
	ErrMalformedLine = errors.New("malformed settings line")
	ErrMissingKey    = errors.New("required settings key is missing or empty")
)

// ParseError wraps a settings parsing or validation failure with the
// line or key it refers to.
type ParseError struct {
	Field   string // line reference or key name
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
