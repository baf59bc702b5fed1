package errmsg

import (
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("validation error")

// FieldError describes one rejected field. Enum is set when the value
// failed an enum membership check.
type FieldError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Enum    string `json:"enum,omitempty"`
	Message string `json:"message"`
}

func (fe FieldError) String() string {
	if fe.Enum != "" {
		return fmt.Sprintf("%s: %v is not a valid value of enum %s", fe.Field, fe.Value, fe.Enum)
	}
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) Add(fe FieldError) {
	e.Errors = append(e.Errors, fe)
}

// Err returns nil when no field error was collected.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

type _ValidationError struct {
	Message string       `json:"message" example:"validation error"`
	Errors  []FieldError `json:"errors"`
}
