package associations

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dogvoc/dogvoc-cli/internal/dataset"
)

func TestPearsonKnownValues(t *testing.T) {
	r, p, err := Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.7745966692414834, r, 1e-12)
	assert.InDelta(t, 0.12402706265755459, p, 1e-9)

	r, p, err = Pearson([]float64{1, 2, 3}, []float64{3, 2, 1})
	require.NoError(t, err)
	assert.InDelta(t, -1, r, 1e-12)
	assert.Equal(t, 0.0, p)
}

func TestPearsonInsufficient(t *testing.T) {
	_, _, err := Pearson([]float64{1, 2}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, _, err = Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, _, err = Pearson([]float64{1, 2, 3}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestChiSquareYates(t *testing.T) {
	labels := []int{0, 0, 0, 1, 1, 1, 1, 0}
	values := []float64{1, 1, 0, 0, 0, 0, 1, 1}
	res, err := ChiSquare(labels, values)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DoF)
	assert.InDelta(t, 0.5, res.Statistic, 1e-12)
	assert.InDelta(t, 0.4795001221869535, res.PValue, 1e-9)
	assert.Equal(t, [][]int{{1, 3}, {3, 1}}, res.Counts)
	assert.InDeltaSlice(t, []float64{25, 75}, res.RowPercent[0], 1e-12)
}

func TestChiSquareLargerTable(t *testing.T) {
	labels := []int{0, 0, 1, 1, 2, 2, 2, 0, 1}
	values := []float64{1, 1, 0, 0, 2, 2, 2, 1, 2}
	res, err := ChiSquare(labels, values)
	require.NoError(t, err)
	assert.Equal(t, 4, res.DoF)
	assert.InDelta(t, 13.5, res.Statistic, 1e-9)
	assert.InDelta(t, 0.009074317061131602, res.PValue, 1e-9)
	assert.Equal(t, []float64{0, 1, 2}, res.Levels)
}

func TestChiSquareInsufficient(t *testing.T) {
	_, err := ChiSquare([]int{0, 0, 0}, []float64{1, 0, 1})
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = ChiSquare([]int{0, 1, 0}, []float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func growlTable() *dataset.Table {
	t := &dataset.Table{
		Name:    "growl_to_whom",
		Columns: []string{"growl_to_whom_strangers", "growl_to_whom_owner", "growl_to_whom_dogs"},
	}
	patterns := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	for i := 0; i < 24; i++ {
		t.Rows = append(t.Rows, append([]float64(nil), patterns[i%4]...))
		t.IDs = append(t.IDs, fmt.Sprintf("d%02d", i))
	}
	return t
}

func TestTargetShares(t *testing.T) {
	shares := TargetShares(growlTable())
	require.Len(t, shares, 3)
	for _, s := range shares {
		assert.InDelta(t, 50, s.Percent, 1e-12)
	}
	assert.Equal(t, "growl_to_whom_strangers", shares[0].Column)
}

func TestStandardize(t *testing.T) {
	tbl := &dataset.Table{Columns: []string{"a", "b"}, Rows: [][]float64{{0, 5}, {2, 5}}}
	z := Standardize(tbl)
	assert.Equal(t, [][]float64{{-1, 0}, {1, 0}}, z)
}

func TestKMeansSeparatesPatterns(t *testing.T) {
	tbl := growlTable()
	a, err := KMeans(tbl, 4, 42)
	require.NoError(t, err)
	b, err := KMeans(tbl, 4, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)

	// identical patterns share a cluster and the four patterns get four clusters
	for i := 4; i < len(a.Labels); i++ {
		assert.Equal(t, a.Labels[i%4], a.Labels[i])
	}
	assert.Equal(t, []int{6, 6, 6, 6}, sortedInts(a.Sizes))
	assert.InDelta(t, 0, a.Inertia, 1e-9)
	for _, c := range a.Centroids {
		assert.Len(t, c, 3)
		assert.False(t, math.IsNaN(c[0]))
	}

	_, err = KMeans(tbl, 30, 42)
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = KMeans(tbl, 0, 42)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	growl := growlTable()
	origin := &dataset.Table{Name: "origin", Columns: []string{"origin_shelter", "origin_breeder"}}
	keep := &dataset.Table{Name: "keep", Columns: []string{"keep_indoors"}}
	problems := &dataset.Table{Name: "problems", Columns: []string{"problems_He_she_barks_too_much", "problems_Aggression_towards_people"}}
	for i, id := range growl.IDs {
		shelter := 0.0
		if i%4 == 3 {
			shelter = 1
		}
		origin.Rows = append(origin.Rows, []float64{shelter, 1 - shelter})
		origin.IDs = append(origin.IDs, id)
		indoors := float64(i % 2)
		keep.Rows = append(keep.Rows, []float64{indoors})
		keep.IDs = append(keep.IDs, id)
		barks := indoors
		if i%6 == 0 {
			barks = 1 - barks
		}
		problems.Rows = append(problems.Rows, []float64{barks, float64(i % 3 % 2)})
		problems.IDs = append(problems.IDs, id)
	}

	opt := DefaultOptions()
	opt.Logger = zaptest.NewLogger(t)
	rep, err := Analyze(Inputs{Growl: growl, Origin: origin, Keep: keep, Problems: problems}, opt)
	require.NoError(t, err)

	require.Len(t, rep.Origin, 2)
	assert.True(t, rep.Origin[0].Significant)
	assert.Less(t, rep.Origin[0].PValue, 0.05)

	require.Len(t, rep.Correlations, 2)
	assert.Equal(t, "problems_He_she_barks_too_much", rep.Correlations[0].Problem)
	assert.Greater(t, rep.Correlations[0].R, 0.0)
	assert.Len(t, rep.Warnings, 1) // third vocal problem column is absent

	md := rep.Markdown()
	assert.Contains(t, md, "# Dog Vocalization Analysis Results")
	assert.Contains(t, md, "- strangers: 50.0%")
	assert.Contains(t, md, "#### shelter")
	assert.Contains(t, md, "Statistically significant relationship found")
	assert.Contains(t, md, "He_she_barks_too_much")
}

func TestAnalyzeRequiresGrowl(t *testing.T) {
	_, err := Analyze(Inputs{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyzeSkipsMissingTables(t *testing.T) {
	rep, err := Analyze(Inputs{Growl: growlTable()}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, rep.Origin)
	assert.Empty(t, rep.Correlations)
	assert.Len(t, rep.Warnings, 2)
}

func sortedInts(xs []int) []int {
	out := append([]int(nil), xs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
