// Package mca fits a Multiple Correspondence Analysis over a numeric table of
// categorical (usually 0/1 indicator) variables.
//
// Each variable is expanded into one dummy column per distinct value. The
// indicator matrix Z is turned into a correspondence matrix P = Z/N and the
// standardized residuals
//
//	S = Dr^-1/2 (P - r c^T) Dc^-1/2
//
// are decomposed with a thin SVD. Eigenvalues are the squared singular values,
// principal coordinates are the singular vectors rescaled by the singular
// values and the inverse square root of the masses.
package mca

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/dogvoc/dogvoc-cli/internal/dataset"
)

// Options controls the fit.
type Options struct {
	// Components is the number of dimensions retained for downstream use.
	Components int
	// Tolerance below which an eigenvalue counts as zero.
	Tolerance float64
}

// DefaultOptions returns three components and a 1e-12 eigenvalue tolerance.
func DefaultOptions() Options {
	return Options{Components: 3, Tolerance: 1e-12}
}

// Category is one dummy column of the indicator expansion.
type Category struct {
	Variable      string
	Value         float64
	Label         string
	Mass          float64
	Coordinates   []float64
	Contributions []float64
}

// Model is a fitted MCA. It is not modified after Fit returns.
type Model struct {
	// Columns are the analyzed variables, in table order.
	Columns []string
	// Dropped lists zero-variance variables excluded before fitting.
	Dropped []string
	// Rows is the number of observations.
	Rows int
	// Requested is the component count asked for; len(Eigenvalues) may be lower
	// when the table has fewer non-trivial dimensions.
	Requested int

	Eigenvalues      []float64
	AllEigenvalues   []float64
	TotalInertia     float64
	ExplainedInertia []float64

	RowCoordinates      *mat.Dense // Rows x components
	ColumnCoordinates   *mat.Dense // len(Columns) x components
	ColumnContributions *mat.Dense // len(Columns) x components, each column sums to 1
	Categories          []Category

	// InvalidRows and InvalidColumns count coordinates holding NaN or Inf.
	InvalidRows    int
	InvalidColumns int
}

// Fit computes the MCA of t.
func Fit(t *dataset.Table, opt Options) (*Model, error) {
	if opt.Components <= 0 {
		opt.Components = DefaultOptions().Components
	}
	if opt.Tolerance <= 0 {
		opt.Tolerance = DefaultOptions().Tolerance
	}
	if t == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidInput)
	}
	n := t.NumRows()
	if n < 2 || t.NumCols() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows and 2 columns, got %dx%d", ErrInvalidInput, n, t.NumCols())
	}

	m := &Model{Rows: n, Requested: opt.Components}
	type variable struct {
		col    int
		levels []float64
	}
	var vars []variable
	for j, name := range t.Columns {
		levels := distinct(t, j)
		if len(levels) < 2 {
			m.Dropped = append(m.Dropped, name)
			continue
		}
		vars = append(vars, variable{col: j, levels: levels})
		m.Columns = append(m.Columns, name)
	}
	if len(vars) < 2 {
		return nil, fmt.Errorf("%w: %d usable columns after dropping %d zero-variance columns",
			ErrInvalidInput, len(vars), len(m.Dropped))
	}

	// Indicator expansion.
	q := len(vars)
	owner := []int{}
	for vi, v := range vars {
		for _, lv := range v.levels {
			m.Categories = append(m.Categories, Category{
				Variable: t.Columns[v.col],
				Value:    lv,
				Label:    fmt.Sprintf("%s_%s", t.Columns[v.col], formatLevel(lv)),
			})
			owner = append(owner, vi)
		}
	}
	nc := len(m.Categories)
	z := mat.NewDense(n, nc, nil)
	counts := make([]float64, nc)
	offset := 0
	for _, v := range vars {
		for i, row := range t.Rows {
			k := sort.SearchFloat64s(v.levels, row[v.col])
			z.Set(i, offset+k, 1)
			counts[offset+k]++
		}
		offset += len(v.levels)
	}

	total := float64(n * q)
	rowMass := 1 / float64(n)
	colMass := make([]float64, nc)
	for j := range colMass {
		colMass[j] = counts[j] / total
		m.Categories[j].Mass = colMass[j]
	}
	s := mat.NewDense(n, nc, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < nc; j++ {
			p := z.At(i, j) / total
			e := rowMass * colMass[j]
			s.Set(i, j, (p-e)/math.Sqrt(e))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(s, mat.SVDThin); !ok {
		return nil, ErrDecomposition
	}
	sv := svd.Values(nil)
	for _, v := range sv {
		if lambda := v * v; lambda > opt.Tolerance {
			m.AllEigenvalues = append(m.AllEigenvalues, lambda)
		}
	}
	for _, l := range m.AllEigenvalues {
		m.TotalInertia += l
	}
	k := opt.Components
	if k > len(m.AllEigenvalues) {
		k = len(m.AllEigenvalues)
	}
	if k == 0 {
		return nil, ErrDegenerateInput
	}
	m.Eigenvalues = append([]float64(nil), m.AllEigenvalues[:k]...)
	ratios, err := ExplainedInertia(m.Eigenvalues, m.TotalInertia)
	if err != nil {
		return nil, err
	}
	m.ExplainedInertia = ratios

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	fixSigns(&u, &v, k)

	m.RowCoordinates = mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for d := 0; d < k; d++ {
			m.RowCoordinates.Set(i, d, u.At(i, d)*sv[d]/math.Sqrt(rowMass))
		}
	}
	for j := range m.Categories {
		c := &m.Categories[j]
		c.Coordinates = make([]float64, k)
		c.Contributions = make([]float64, k)
		for d := 0; d < k; d++ {
			c.Coordinates[d] = v.At(j, d) * sv[d] / math.Sqrt(colMass[j])
			c.Contributions[d] = v.At(j, d) * v.At(j, d)
		}
	}

	// Variable level: the coordinate is that of the variable's highest level
	// (the "1" of a 0/1 indicator), the contribution the sum over all its
	// categories.
	m.ColumnCoordinates = mat.NewDense(q, k, nil)
	m.ColumnContributions = mat.NewDense(q, k, nil)
	for j, c := range m.Categories {
		vi := owner[j]
		for d := 0; d < k; d++ {
			m.ColumnContributions.Set(vi, d, m.ColumnContributions.At(vi, d)+c.Contributions[d])
		}
		// levels ascend within a variable, so the last category wins
		m.ColumnCoordinates.SetRow(vi, c.Coordinates)
	}

	m.markInvalid()
	return m, nil
}

// ExplainedInertia divides each eigenvalue by the total inertia. A zero or
// non-finite total, or all-zero eigenvalues, yields ErrDegenerateInput.
func ExplainedInertia(eigenvalues []float64, total float64) ([]float64, error) {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: total inertia %v", ErrDegenerateInput, total)
	}
	allZero := true
	for _, e := range eigenvalues {
		if e != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, fmt.Errorf("%w: all retained eigenvalues are zero", ErrDegenerateInput)
	}
	out := make([]float64, len(eigenvalues))
	for i, e := range eigenvalues {
		out[i] = e / total
	}
	return out, nil
}

// Components returns the number of retained dimensions.
func (m *Model) Components() int { return len(m.Eigenvalues) }

// ColumnCoordinate returns the coordinates of the named variable.
func (m *Model) ColumnCoordinate(name string) ([]float64, bool) {
	return rowOf(m.ColumnCoordinates, m.columnIndex(name))
}

// ColumnContribution returns the contributions of the named variable.
func (m *Model) ColumnContribution(name string) ([]float64, bool) {
	return rowOf(m.ColumnContributions, m.columnIndex(name))
}

// FiniteColumns returns the analyzed variables whose coordinates and
// contributions are all finite.
func (m *Model) FiniteColumns() []string {
	out := make([]string, 0, len(m.Columns))
	for i, c := range m.Columns {
		if m.finiteColumn(i) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Model) columnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (m *Model) markInvalid() {
	m.InvalidRows = 0
	for i := 0; i < m.Rows; i++ {
		if !finite(mat.Row(nil, i, m.RowCoordinates)) {
			m.InvalidRows++
		}
	}
	m.InvalidColumns = len(m.Columns) - len(m.FiniteColumns())
}

func (m *Model) finiteColumn(i int) bool {
	return finite(mat.Row(nil, i, m.ColumnCoordinates)) && finite(mat.Row(nil, i, m.ColumnContributions))
}

// fixSigns flips singular vector pairs so the largest-magnitude entry of each
// right vector is positive, making coordinates reproducible across runs.
func fixSigns(u, v *mat.Dense, k int) {
	rv, _ := v.Dims()
	ru, _ := u.Dims()
	for d := 0; d < k; d++ {
		best, bestAbs := 0.0, -1.0
		for j := 0; j < rv; j++ {
			if a := math.Abs(v.At(j, d)); a > bestAbs {
				best, bestAbs = v.At(j, d), a
			}
		}
		if best >= 0 {
			continue
		}
		for j := 0; j < rv; j++ {
			v.Set(j, d, -v.At(j, d))
		}
		for i := 0; i < ru; i++ {
			u.Set(i, d, -u.At(i, d))
		}
	}
}

func distinct(t *dataset.Table, col int) []float64 {
	seen := map[float64]struct{}{}
	for _, row := range t.Rows {
		seen[row[col]] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func rowOf(d *mat.Dense, i int) ([]float64, bool) {
	if d == nil || i < 0 {
		return nil, false
	}
	return mat.Row(nil, i, d), true
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func formatLevel(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
