// Package dataset loads survey tables from delimited text and spreadsheet
// files into a rectangular numeric table.
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIDColumn is the respondent identifier used across the survey exports.
const DefaultIDColumn = "ID_full"

// Options controls how a file is read and coerced.
type Options struct {
	// IDColumn is dropped from the analyzed columns when present. Matching is case-insensitive.
	IDColumn string
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// DecimalSeparator for numbers. If 0, auto-detect per value.
	DecimalSeparator rune
	// SheetName selects an XLSX sheet; SheetIndex (1-based) is used when empty.
	SheetName  string
	SheetIndex int
	// Fallback replaces missing and non-numeric cells. Nil means strict: such
	// cells fail the load with a *CoercionError.
	Fallback *float64
}

// DefaultOptions returns the project convention: drop ID_full, replace
// anything non-numeric with 0.
func DefaultOptions() Options {
	zero := 0.0
	return Options{
		IDColumn:   DefaultIDColumn,
		SheetIndex: 1,
		Fallback:   &zero,
	}
}

// Table is a rectangular, fully numeric observation table.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]float64
	// IDs holds the stripped identifier values, one per row, when the
	// identifier column was present.
	IDs []string
	// Coerced counts cells replaced by the fallback value.
	Coerced int
}

// NumRows returns the number of observations.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of analyzed columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, bool) {
	idx := t.index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Select returns a new table restricted to the given columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idxs := make([]int, len(names))
	for i, n := range names {
		idx := t.index(n)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, n)
		}
		idxs[i] = idx
	}
	out := &Table{Name: t.Name, Columns: append([]string(nil), names...), IDs: t.IDs}
	out.Rows = make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		vals := make([]float64, len(idxs))
		for i, idx := range idxs {
			vals[i] = row[idx]
		}
		out.Rows[r] = vals
	}
	return out, nil
}

func (t *Table) index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Reader reads raw string records from one file format.
type Reader interface {
	CanRead(path string) bool
	ReadRecords(path string, opt Options) (header []string, records [][]string, err error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(xlsxReader{})
	Register(csvReader{})
}

// Load reads path into a Table. A missing file yields ErrFileNotFound, a file
// without data rows ErrEmptyData.
func Load(path string, opt Options) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	var rd Reader = csvReader{}
	for _, r := range registry {
		if r.CanRead(path) {
			rd = r
			break
		}
	}
	header, records, err := rd.ReadRecords(path, opt)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return build(name, header, records, opt)
}

// build drops the identifier column and coerces every remaining cell.
func build(name string, header []string, records [][]string, opt Options) (*Table, error) {
	if len(header) == 0 || len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyData, name)
	}
	idIdx := -1
	t := &Table{Name: name}
	keep := make([]int, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if opt.IDColumn != "" && idIdx < 0 && strings.EqualFold(h, opt.IDColumn) {
			idIdx = i
			continue
		}
		keep = append(keep, i)
		t.Columns = append(t.Columns, h)
	}
	t.Rows = make([][]float64, 0, len(records))
	for r, rec := range records {
		if len(rec) < len(header) {
			tmp := make([]string, len(header))
			copy(tmp, rec)
			rec = tmp
		}
		if idIdx >= 0 {
			t.IDs = append(t.IDs, strings.TrimSpace(rec[idIdx]))
		}
		row := make([]float64, len(keep))
		for j, idx := range keep {
			raw := strings.TrimSpace(rec[idx])
			if x, ok := parseNumeric(raw, opt.DecimalSeparator); ok {
				row[j] = x
				continue
			}
			if opt.Fallback == nil {
				return nil, &CoercionError{Column: t.Columns[j], Row: r + 1, Value: raw}
			}
			row[j] = *opt.Fallback
			t.Coerced++
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
