package mca

import "errors"

var (
	// ErrInvalidInput is returned when the table is too small for
	// correspondence analysis (fewer than 2 rows or 2 usable columns).
	ErrInvalidInput = errors.New("mca: invalid input")

	// ErrDegenerateInput is returned when the total inertia, or every
	// retained eigenvalue, is zero and inertia ratios are undefined.
	ErrDegenerateInput = errors.New("mca: degenerate input (zero inertia)")

	// ErrDecomposition is returned when the SVD fails to converge.
	ErrDecomposition = errors.New("mca: singular value decomposition failed")
)
