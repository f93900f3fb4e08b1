package results

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogvoc/dogvoc-cli/internal/dataset"
	"github.com/dogvoc/dogvoc-cli/internal/mca"
)

func fitted(t *testing.T) *mca.Model {
	t.Helper()
	tbl := &dataset.Table{
		Name:    "growl",
		Columns: []string{"stranger", "owner", "child"},
		Rows: [][]float64{
			{1, 0, 1},
			{0, 1, 1},
			{1, 1, 0},
			{0, 0, 1},
		},
	}
	m, err := mca.Fit(tbl, mca.DefaultOptions())
	require.NoError(t, err)
	return m
}

func TestFromModel(t *testing.T) {
	m := fitted(t)
	r, err := FromModel("growl", m)
	require.NoError(t, err)
	require.NoError(t, r.Validate())
	assert.Equal(t, SchemaVersion, r.SchemaVersion)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, m.Components(), r.Components)
	assert.Equal(t, 4, r.RowCount)
	assert.Equal(t, []string{"stranger", "owner", "child"}, r.Columns)
	for _, c := range r.Columns {
		v, ok := r.Coordinate(c)
		require.True(t, ok)
		assert.Len(t, v, r.Components)
		w, ok := r.Contribution(c)
		require.True(t, ok)
		assert.Len(t, w, r.Components)
	}
	_, ok := r.Coordinate("nobody")
	assert.False(t, ok)
}

func TestFromModelExcludesNonFiniteColumns(t *testing.T) {
	m := fitted(t)
	m.ColumnCoordinates.Set(1, 0, math.NaN())
	m.ColumnContributions.Set(2, 0, math.Inf(1))

	r, err := FromModel("growl", m)
	require.NoError(t, err)
	assert.Equal(t, []string{"stranger"}, r.Columns)
	assert.Equal(t, 2, r.InvalidColumns)
	for _, name := range []string{"owner", "child"} {
		_, ok := r.Coordinate(name)
		assert.False(t, ok, name)
		_, ok = r.Contribution(name)
		assert.False(t, ok, name)
	}
	require.NoError(t, r.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r, err := FromModel("growl", fitted(t))
	require.NoError(t, err)
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, r.Save(path))
			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, r.RunID, got.RunID)
			assert.Equal(t, r.Columns, got.Columns)
			assert.InDeltaSlice(t, r.ExplainedInertia, got.ExplainedInertia, 1e-9)
			assert.InDeltaSlice(t, r.Eigenvalues, got.Eigenvalues, 1e-9)
			for _, c := range r.Columns {
				assert.InDeltaSlice(t, r.ColumnCoordinates[c], got.ColumnCoordinates[c], 1e-9)
				assert.InDeltaSlice(t, r.ColumnContributions[c], got.ColumnContributions[c], 1e-9)
			}
			assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestValidateRejects(t *testing.T) {
	base := func() *Results {
		r, err := FromModel("growl", fitted(t))
		require.NoError(t, err)
		return r
	}
	cases := map[string]func(r *Results){
		"version":        func(r *Results) { r.SchemaVersion = 9 },
		"no components":  func(r *Results) { r.Components = 0 },
		"short inertia":  func(r *Results) { r.ExplainedInertia = r.ExplainedInertia[:1] },
		"inertia range":  func(r *Results) { r.ExplainedInertia[0] = 1.5 },
		"missing coords": func(r *Results) { delete(r.ColumnCoordinates, "owner") },
		"short contrib":  func(r *Results) { r.ColumnContributions["owner"] = []float64{0.1} },
		"stray entry":    func(r *Results) { r.ColumnCoordinates["ghost"] = make([]float64, r.Components) },
		"duplicate":      func(r *Results) { r.Columns = append(r.Columns, "owner") },
		"no columns":     func(r *Results) { r.Columns = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := base()
			mutate(r)
			assert.True(t, errors.Is(r.Validate(), ErrSchema))
		})
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"schema_version":1,"components":2}`), 0o644))
	_, err := Load(bad)
	assert.ErrorIs(t, err, ErrSchema)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`not json`), 0o644))
	_, err = Load(garbage)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = Load(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".yaml", Ext("YAML"))
	assert.Equal(t, ".yaml", Ext("yml"))
	assert.Equal(t, ".json", Ext("json"))
	assert.Equal(t, ".json", Ext(""))
}
