package report

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dogvoc/dogvoc-cli/internal/results"
)

func sample() *results.Results {
	return &results.Results{
		SchemaVersion:    results.SchemaVersion,
		Name:             "growl_to_whom",
		RunID:            "run-1",
		CreatedAt:        time.Date(2025, 1, 16, 9, 32, 28, 0, time.UTC),
		Components:       2,
		RowCount:         40,
		Eigenvalues:      []float64{0.3, 0.1},
		ExplainedInertia: []float64{0.6, 0.2},
		TotalInertia:     0.5,
		Columns:          []string{"stranger", "owner", "child", "dog"},
		ColumnCoordinates: map[string][]float64{
			"stranger": {0.9, 0.1},
			"owner":    {0.8, 0.2},
			"child":    {-0.5, 0.7},
			"dog":      {-0.6, -0.9},
		},
		ColumnContributions: map[string][]float64{
			"stranger": {0.4, 0.1},
			"owner":    {0.3, 0.2},
			"child":    {0.2, 0.3},
			"dog":      {0.1, 0.4},
		},
		DroppedColumns: []string{"cat"},
	}
}

func smallOptions(t *testing.T) Options {
	opt := DefaultOptions()
	opt.WidthIn, opt.HeightIn, opt.DPI = 8, 6, 50
	opt.Logger = zaptest.NewLogger(t)
	return opt
}

func TestTopContributors(t *testing.T) {
	res := sample()
	top := TopContributors(res, 0, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "stranger", top[0].Variable)
	assert.Equal(t, "owner", top[1].Variable)
	top = TopContributors(res, 1, 5)
	require.Len(t, top, 4)
	assert.Equal(t, "dog", top[0].Variable)
	assert.Empty(t, TopContributors(res, 5, 5))
}

func TestCumulative(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0.6, 0.8, 0.9}, Cumulative([]float64{0.6, 0.2, 0.1}), 1e-12)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample(), DefaultOptions())
	assert.Contains(t, md, "# MCA Report: Growl To Whom")
	assert.Contains(t, md, "Dimension 1: 60.00% (Cumulative: 60.00%)")
	assert.Contains(t, md, "Dimension 2: 20.00% (Cumulative: 80.00%)")
	assert.Contains(t, md, "### Dimension 1")
	assert.Contains(t, md, "40.00%")
	assert.Contains(t, md, "Constant columns excluded: cat")
	assert.Contains(t, md, "## Column Coordinates")
	assert.Contains(t, md, "## Proximity")

	i := strings.Index(md, "### Dimension 1")
	j := strings.Index(md, "### Dimension 2")
	section := md[i:j]
	assert.Less(t, strings.Index(section, "stranger"), strings.Index(section, "owner"))
}

func TestRenderPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "mca_growl.png")
	stats, err := RenderPNG(sample(), path, smallOptions(t))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Unmatched)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestRenderPNGUnmatchedVariable(t *testing.T) {
	res := sample()
	delete(res.ColumnContributions, "child")
	path := filepath.Join(t.TempDir(), "partial.png")
	stats, err := RenderPNG(res, path, smallOptions(t))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unmatched)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRenderPNGRejectsEmpty(t *testing.T) {
	_, err := RenderPNG(&results.Results{}, filepath.Join(t.TempDir(), "x.png"), smallOptions(t))
	assert.ErrorIs(t, err, results.ErrSchema)
}

func TestMarkerSize(t *testing.T) {
	opt := DefaultOptions()
	assert.InDelta(t, 400.0, opt.markerSize(0.4, true), 1e-9)
	assert.Equal(t, 100.0, opt.markerSize(0.01, true))
	assert.Equal(t, 500.0, opt.markerSize(0, false))
}

func TestMatchError(t *testing.T) {
	var err error = &MatchError{Variable: "dog", Field: "contribution"}
	assert.True(t, errors.Is(err, ErrMatch))
	assert.Contains(t, err.Error(), `"dog"`)
}
