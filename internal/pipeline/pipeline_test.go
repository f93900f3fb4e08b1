package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dogvoc/dogvoc-cli/internal/config"
	"github.com/dogvoc/dogvoc-cli/internal/dataset"
	"github.com/dogvoc/dogvoc-cli/internal/mca"
	"github.com/dogvoc/dogvoc-cli/internal/results"
)

const survey = `ID_full,strangers,owner,children,dogs
1,1,0,1,0
2,0,1,1,0
3,1,1,0,1
4,0,0,1,1
5,1,0,0,1
6,0,1,0,0
`

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func testConfig(t *testing.T, out string) Config {
	cfg := DefaultConfig(out)
	cfg.Report.WidthIn, cfg.Report.HeightIn, cfg.Report.DPI = 10, 7.5, 40
	cfg.Logger = zaptest.NewLogger(t)
	cfg.Report.Logger = cfg.Logger
	return cfg
}

func TestRunContinuesPastMissingFile(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	files := []string{
		writeCSV(t, in, "keep.csv", survey),
		filepath.Join(in, "howl_on_sound.csv"),
		writeCSV(t, in, "grow_to_whom.csv", survey),
		writeCSV(t, in, "problems.csv", survey),
	}
	var progress []int
	cfg := testConfig(t, out)
	cfg.Progress = func(i, total int, _ string) {
		assert.Equal(t, 4, total)
		progress = append(progress, i)
	}

	s := Run(cfg, files)
	require.Len(t, s.Files, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)
	assert.Equal(t, 3, s.Succeeded())
	assert.Equal(t, 1, s.Failed())

	missing := s.Files[1]
	assert.Equal(t, StageLoad, missing.Stage)
	assert.True(t, errors.Is(missing.Err, dataset.ErrFileNotFound))

	for _, i := range []int{0, 2, 3} {
		f := s.Files[i]
		require.NoError(t, f.Err, f.Input)
		for _, p := range []string{f.ResultsPath, f.ReportPath, f.PlotPath} {
			_, err := os.Stat(p)
			assert.NoError(t, err, p)
		}
		assert.Equal(t, 6, f.Rows)
	}
	assert.Equal(t, filepath.Join(out, ResultsDir, "mca_keep_results.json"), s.Files[0].ResultsPath)
	assert.Equal(t, filepath.Join(out, PlotsDir, "mca_problems.png"), s.Files[3].PlotPath)

	idx, err := os.ReadFile(s.IndexPath)
	require.NoError(t, err)
	assert.Contains(t, string(idx), "3 succeeded, 1 failed")
	assert.Contains(t, string(idx), "howl_on_sound.csv")
}

func TestRunRecordsFitFailure(t *testing.T) {
	in := t.TempDir()
	constant := writeCSV(t, in, "flat.csv", "ID_full,a,b\n1,1,0\n2,1,0\n3,1,0\n")
	good := writeCSV(t, in, "good.csv", survey)
	s := Run(testConfig(t, t.TempDir()), []string{constant, good})
	require.Len(t, s.Files, 2)
	assert.Equal(t, StageFit, s.Files[0].Stage)
	assert.ErrorIs(t, s.Files[0].Err, mca.ErrInvalidInput)
	assert.True(t, s.Files[1].OK())
}

func TestRunTimestampedNamesAndYAML(t *testing.T) {
	in := t.TempDir()
	a := writeCSV(t, in, "keep.csv", survey)
	sub := filepath.Join(in, "again")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	b := writeCSV(t, sub, "keep.csv", survey)

	out := t.TempDir()
	cfg := testConfig(t, out)
	cfg.Timestamped = true
	cfg.ResultsFormat = "yaml"
	cfg.Now = func() time.Time { return time.Date(2025, 1, 16, 9, 32, 28, 0, time.UTC) }
	s := Run(cfg, []string{a, b})
	require.Equal(t, 2, s.Succeeded())
	assert.Equal(t, filepath.Join(out, ResultsDir, "mca_keep_20250116_093228_results.yaml"), s.Files[0].ResultsPath)
	assert.Equal(t, filepath.Join(out, ResultsDir, "mca_keep_20250116_093228__2_results.yaml"), s.Files[1].ResultsPath)

	res, err := results.Load(s.Files[1].ResultsPath)
	require.NoError(t, err)
	assert.Equal(t, b, res.Source)
}

func TestRenderFromResults(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	cfg := testConfig(t, out)
	s := Run(cfg, []string{writeCSV(t, in, "keep.csv", survey)})
	require.Equal(t, 1, s.Succeeded())

	listed, err := ListResults(out)
	require.NoError(t, err)
	require.Equal(t, []string{s.Files[0].ResultsPath}, listed)

	bogus := writeCSV(t, in, "bogus_results.json", `{"schema_version":1}`)
	rerender := t.TempDir()
	cfg.OutputDir = rerender
	r := RenderFromResults(cfg, []string{listed[0], bogus})
	require.Len(t, r.Files, 2)
	assert.True(t, r.Files[0].OK())
	assert.Equal(t, filepath.Join(rerender, PlotsDir, "mca_keep.png"), r.Files[0].PlotPath)
	_, err = os.Stat(r.Files[0].ReportPath)
	assert.NoError(t, err)
	assert.ErrorIs(t, r.Files[1].Err, results.ErrSchema)
}

func TestListResultsMissingDir(t *testing.T) {
	got, err := ListResults(filepath.Join(t.TempDir(), "none"))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromGlobal(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	g, err := config.Load("")
	require.NoError(t, err)
	g.Delimiter = "tab"
	g.Strict = true
	g.Components = 2
	g.Plot.Percentile = 10
	cfg, err := FromGlobal(g, nil)
	require.NoError(t, err)
	assert.Equal(t, '\t', cfg.Dataset.Delimiter)
	assert.Nil(t, cfg.Dataset.Fallback)
	assert.Equal(t, 2, cfg.MCA.Components)
	assert.Equal(t, 10.0, cfg.Report.Percentile)
	assert.Equal(t, 1000.0, cfg.Report.SizeScale)

	g.Delimiter = "#"
	_, err = FromGlobal(g, nil)
	assert.Error(t, err)
}

func TestRunSelectsColumns(t *testing.T) {
	in := writeCSV(t, t.TempDir(), "keep.csv", survey)
	cfg := testConfig(t, t.TempDir())
	cfg.Columns = []string{"strangers", "owner", "dogs"}
	cfg.Overview = true
	s := Run(cfg, []string{in})
	require.True(t, s.Files[0].OK())
	assert.Contains(t, s.Files[0].Overview, "Columns (3): strangers, owner, dogs")

	cfg.Columns = []string{"strangers", "cats"}
	s = Run(cfg, []string{in})
	assert.Equal(t, StageLoad, s.Files[0].Stage)
	assert.ErrorIs(t, s.Files[0].Err, dataset.ErrUnknownColumn)
}
