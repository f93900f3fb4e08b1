package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Load and friends. Match them with errors.Is.
var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = errors.New("dataset: file not found")
	// ErrEmptyData is returned when a file parses to zero data rows.
	ErrEmptyData = errors.New("dataset: no data rows")
	// ErrValue is returned when a cell cannot be coerced and no fallback is set.
	ErrValue = errors.New("dataset: value not coercible to a number")
	// ErrNoIdentifier is returned by Merge when a table carries no identifier column.
	ErrNoIdentifier = errors.New("dataset: table has no identifier column")
	// ErrUnknownColumn is returned when a requested column is absent.
	ErrUnknownColumn = errors.New("dataset: unknown column")
)

// CoercionError reports the first cell that could not be converted in strict mode.
type CoercionError struct {
	Column string
	Row    int // 1-based data row, header excluded
	Value  string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot coerce %q to a number", e.Column, e.Row, e.Value)
}

func (e *CoercionError) Unwrap() error { return ErrValue }
