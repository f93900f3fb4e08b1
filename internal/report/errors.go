package report

import (
	"errors"
	"fmt"
)

// ErrMatch marks a variable that has coordinates but no usable contribution
// (or the reverse).
var ErrMatch = errors.New("report: unmatched variable")

// MatchError names the variable and the field that could not be matched.
type MatchError struct {
	Variable string
	Field    string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("report: no %s for variable %q", e.Field, e.Variable)
}

func (e *MatchError) Unwrap() error { return ErrMatch }
