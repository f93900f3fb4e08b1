// Package associations relates vocal behaviour to origin and keeping
// conditions: growling target shares, k-means behavioural clusters,
// chi-square independence tests and Pearson correlations.
package associations

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInsufficientData is returned when a test has too few observations or
// levels to be computed.
var ErrInsufficientData = errors.New("associations: insufficient data")

// ChiSquareResult is a Pearson chi-square test of independence between
// cluster labels and one categorical column.
type ChiSquareResult struct {
	Statistic float64
	DoF       int
	PValue    float64
	// Clusters and Levels label the rows and columns of Counts.
	Clusters   []int
	Levels     []float64
	Counts     [][]int
	RowPercent [][]float64
}

// ChiSquare builds the cluster x value contingency table and tests it.
// Two-by-two tables use Yates' continuity correction.
func ChiSquare(labels []int, values []float64) (*ChiSquareResult, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("%w: %d labels, %d values", ErrInsufficientData, len(labels), len(values))
	}
	clusters := distinctInts(labels)
	levels := distinctFloats(values)
	if len(clusters) < 2 || len(levels) < 2 {
		return nil, fmt.Errorf("%w: %dx%d contingency table", ErrInsufficientData, len(clusters), len(levels))
	}
	ri := make(map[int]int, len(clusters))
	for i, c := range clusters {
		ri[c] = i
	}
	ci := make(map[float64]int, len(levels))
	for j, v := range levels {
		ci[v] = j
	}
	counts := make([][]int, len(clusters))
	for i := range counts {
		counts[i] = make([]int, len(levels))
	}
	for k := range labels {
		counts[ri[labels[k]]][ci[values[k]]]++
	}

	rowSum := make([]float64, len(clusters))
	colSum := make([]float64, len(levels))
	var n float64
	for i, row := range counts {
		for j, c := range row {
			rowSum[i] += float64(c)
			colSum[j] += float64(c)
			n += float64(c)
		}
	}
	dof := (len(clusters) - 1) * (len(levels) - 1)
	var chi2 float64
	for i, row := range counts {
		for j, c := range row {
			e := rowSum[i] * colSum[j] / n
			d := math.Abs(float64(c) - e)
			if dof == 1 {
				d -= math.Min(0.5, d)
			}
			chi2 += d * d / e
		}
	}
	res := &ChiSquareResult{
		Statistic: chi2,
		DoF:       dof,
		PValue:    distuv.ChiSquared{K: float64(dof)}.Survival(chi2),
		Clusters:  clusters,
		Levels:    levels,
		Counts:    counts,
	}
	res.RowPercent = make([][]float64, len(clusters))
	for i, row := range counts {
		res.RowPercent[i] = make([]float64, len(levels))
		for j, c := range row {
			res.RowPercent[i][j] = float64(c) / rowSum[i] * 100
		}
	}
	return res, nil
}

// Pearson returns the correlation coefficient of x and y with its two-sided
// p-value from Student's t distribution with n-2 degrees of freedom.
func Pearson(x, y []float64) (r, p float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: lengths %d and %d", ErrInsufficientData, len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return 0, 0, fmt.Errorf("%w: %d observations", ErrInsufficientData, n)
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0, 0, fmt.Errorf("%w: constant input", ErrInsufficientData)
	}
	r = math.Max(-1, math.Min(1, stat.Correlation(x, y, nil)))
	dof := float64(n - 2)
	if math.Abs(r) == 1 {
		return r, 0, nil
	}
	t := r * math.Sqrt(dof/(1-r*r))
	p = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}.Survival(math.Abs(t))
	return r, math.Min(p, 1), nil
}

func distinctInts(xs []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return out
}

func distinctFloats(xs []float64) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}
