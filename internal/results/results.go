// Package results persists fitted MCA outputs as self-describing plain data.
// Every coordinate and contribution vector is keyed by its variable name, so
// a later process can rebuild any plot without the source table.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dogvoc/dogvoc-cli/internal/mca"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

// SchemaVersion is written into every file and checked on load.
const SchemaVersion = 1

// ErrSchema is returned when a results file does not satisfy the schema.
var ErrSchema = errors.New("results: schema violation")

// Results is the serialized form of a fitted model.
type Results struct {
	SchemaVersion       int                  `json:"schema_version" yaml:"schema_version"`
	Name                string               `json:"name" yaml:"name"`
	RunID               string               `json:"run_id" yaml:"run_id"`
	CreatedAt           time.Time            `json:"created_at" yaml:"created_at"`
	Source              string               `json:"source,omitempty" yaml:"source,omitempty"`
	Components          int                  `json:"components" yaml:"components"`
	RowCount            int                  `json:"row_count" yaml:"row_count"`
	Eigenvalues         []float64            `json:"eigenvalues" yaml:"eigenvalues"`
	ExplainedInertia    []float64            `json:"explained_inertia" yaml:"explained_inertia"`
	TotalInertia        float64              `json:"total_inertia" yaml:"total_inertia"`
	Columns             []string             `json:"columns" yaml:"columns"`
	ColumnCoordinates   map[string][]float64 `json:"column_coordinates" yaml:"column_coordinates"`
	ColumnContributions map[string][]float64 `json:"column_contributions" yaml:"column_contributions"`
	DroppedColumns      []string             `json:"dropped_columns,omitempty" yaml:"dropped_columns,omitempty"`
	InvalidRows         int                  `json:"invalid_rows" yaml:"invalid_rows"`
	InvalidColumns      int                  `json:"invalid_columns" yaml:"invalid_columns"`
}

// FromModel converts a fitted model. Variables with non-finite coordinates or
// contributions are left out and counted in InvalidColumns.
func FromModel(name string, m *mca.Model) (*Results, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrSchema)
	}
	r := &Results{
		SchemaVersion:       SchemaVersion,
		Name:                name,
		RunID:               uuid.NewString(),
		CreatedAt:           time.Now().UTC(),
		Components:          m.Components(),
		RowCount:            m.Rows,
		Eigenvalues:         append([]float64(nil), m.Eigenvalues...),
		ExplainedInertia:    append([]float64(nil), m.ExplainedInertia...),
		TotalInertia:        m.TotalInertia,
		ColumnCoordinates:   map[string][]float64{},
		ColumnContributions: map[string][]float64{},
		DroppedColumns:      append([]string(nil), m.Dropped...),
		InvalidRows:         m.InvalidRows,
	}
	for _, c := range m.FiniteColumns() {
		coord, _ := m.ColumnCoordinate(c)
		contrib, _ := m.ColumnContribution(c)
		r.Columns = append(r.Columns, c)
		r.ColumnCoordinates[c] = coord
		r.ColumnContributions[c] = contrib
	}
	r.InvalidColumns = len(m.Columns) - len(r.Columns)
	return r, nil
}

// Coordinate returns the coordinates of a variable.
func (r *Results) Coordinate(name string) ([]float64, bool) {
	v, ok := r.ColumnCoordinates[name]
	return v, ok
}

// Contribution returns the contributions of a variable.
func (r *Results) Contribution(name string) ([]float64, bool) {
	v, ok := r.ColumnContributions[name]
	return v, ok
}

// Validate checks every schema invariant: named vectors for every column,
// lengths matching Components, inertia ratios in [0,1] summing to at most 1.
func (r *Results) Validate() error {
	if r.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema_version %d, want %d", ErrSchema, r.SchemaVersion, SchemaVersion)
	}
	if r.Components <= 0 {
		return fmt.Errorf("%w: components must be > 0", ErrSchema)
	}
	if len(r.Eigenvalues) != r.Components {
		return fmt.Errorf("%w: eigenvalues has %d entries, want %d", ErrSchema, len(r.Eigenvalues), r.Components)
	}
	if len(r.ExplainedInertia) != r.Components {
		return fmt.Errorf("%w: explained_inertia has %d entries, want %d", ErrSchema, len(r.ExplainedInertia), r.Components)
	}
	var sum float64
	for i, x := range r.ExplainedInertia {
		if math.IsNaN(x) || x < 0 || x > 1 {
			return fmt.Errorf("%w: explained_inertia[%d]=%v outside [0,1]", ErrSchema, i, x)
		}
		sum += x
	}
	if sum > 1+1e-9 {
		return fmt.Errorf("%w: explained_inertia sums to %v", ErrSchema, sum)
	}
	if len(r.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrSchema)
	}
	seen := make(map[string]bool, len(r.Columns))
	for _, c := range r.Columns {
		if seen[c] {
			return fmt.Errorf("%w: duplicate column %q", ErrSchema, c)
		}
		seen[c] = true
		if err := checkVector("column_coordinates", c, r.ColumnCoordinates, r.Components); err != nil {
			return err
		}
		if err := checkVector("column_contributions", c, r.ColumnContributions, r.Components); err != nil {
			return err
		}
	}
	for _, field := range []struct {
		name string
		m    map[string][]float64
	}{{"column_coordinates", r.ColumnCoordinates}, {"column_contributions", r.ColumnContributions}} {
		for k := range field.m {
			if !seen[k] {
				return fmt.Errorf("%w: %s has entry %q missing from columns", ErrSchema, field.name, k)
			}
		}
	}
	return nil
}

func checkVector(field, col string, m map[string][]float64, n int) error {
	v, ok := m[col]
	if !ok {
		return fmt.Errorf("%w: %s missing %q", ErrSchema, field, col)
	}
	if len(v) != n {
		return fmt.Errorf("%w: %s[%q] has %d values, want %d", ErrSchema, field, col, len(v), n)
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s[%q] holds a non-finite value", ErrSchema, field, col)
		}
	}
	return nil
}

// Save writes the results atomically. The extension picks the encoding:
// .yaml/.yml for YAML, anything else JSON.
func (r *Results) Save(path string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
	} else {
		b, err = utils.PrettyJSON(r)
		if err != nil {
			return err
		}
	}
	return utils.SafeWriteFile(path, b)
}

// Load reads and validates a results file.
func Load(path string) (*Results, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var r Results
	if isYAML(path) {
		err = yaml.Unmarshal(b, &r)
	} else {
		err = json.Unmarshal(b, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSchema, filepath.Base(path), err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &r, nil
}

// Ext returns the file extension for a results format name ("json" or "yaml").
func Ext(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return ".yaml"
	default:
		return ".json"
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
