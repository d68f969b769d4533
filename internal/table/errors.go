package table

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap one of these so callers can branch on
// the kind with errors.Is.
var (
	ErrStructuralConflict = errors.New("structural conflict")
	ErrValidation         = errors.New("invalid value")
	ErrUnsupportedType    = errors.New("unsupported type")
)

var (
	ErrDuplicateColumn = fmt.Errorf("%w: column already exists", ErrStructuralConflict)
	ErrUnknownColumn   = fmt.Errorf("%w: column does not exist", ErrStructuralConflict)
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrStructuralConflict)
	ErrArity           = fmt.Errorf("%w: wrong number of values", ErrStructuralConflict)
	ErrNoColumns       = fmt.Errorf("%w: no columns defined", ErrStructuralConflict)

	// ErrNothingToInfer is informational: there was no data row to sample.
	ErrNothingToInfer = errors.New("no data to infer column types from")
)

var errInvalid = ErrValidation

// ValidationError reports a value that does not match its column's type.
type ValidationError struct {
	Column string
	Type   Type
	Value  string
	Row    int // 1-based; zero when not tied to a stored row
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d, column %q: %q is not a valid %s", e.Row, e.Column, e.Value, e.Type)
	}
	return fmt.Sprintf("column %q: %q is not a valid %s", e.Column, e.Value, e.Type)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Expected describes the accepted input for t, for prompts and messages.
func Expected(t Type) string {
	switch t {
	case TypeInt:
		return "a whole number (digits only)"
	case TypeFloat:
		return "a number"
	case TypeBool:
		return "'true' or 'false'"
	default:
		return "any text"
	}
}
