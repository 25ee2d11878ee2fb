package mapper

import (
	"errors"
	"fmt"
)

// Sentinel errors for row mapping.
var (
	// ErrMissingColumn indicates a required column is absent from a row.
	ErrMissingColumn = errors.New("mapper: missing column")

	// ErrInvalidConfig indicates an unusable column role configuration.
	ErrInvalidConfig = errors.New("mapper: invalid configuration")
)

// MissingColumnError reports which column was missing and where.
// It matches ErrMissingColumn with errors.Is.
type MissingColumnError struct {
	Column string
	// Line is the 1-based input line of the row, 0 if unknown.
	Line int
}

func (e *MissingColumnError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("mapper: line %d: missing column %q", e.Line, e.Column)
	}
	return fmt.Sprintf("mapper: missing column %q", e.Column)
}

// Is makes errors.Is(err, ErrMissingColumn) true.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
