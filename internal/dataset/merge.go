package dataset

import "fmt"

// Merge inner-joins two tables on their identifier values, keeping the row
// order of a. Column names of b that clash with a get a "_y" suffix.
func Merge(a, b *Table) (*Table, error) {
	if len(a.IDs) != a.NumRows() || a.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifier, a.Name)
	}
	if len(b.IDs) != b.NumRows() || b.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifier, b.Name)
	}
	index := make(map[string][]int, len(b.IDs))
	for i, id := range b.IDs {
		index[id] = append(index[id], i)
	}
	seen := make(map[string]bool, a.NumCols())
	out := &Table{Name: a.Name + "+" + b.Name}
	for _, c := range a.Columns {
		seen[c] = true
		out.Columns = append(out.Columns, c)
	}
	for _, c := range b.Columns {
		if seen[c] {
			c += "_y"
		}
		out.Columns = append(out.Columns, c)
	}
	for i, id := range a.IDs {
		for _, j := range index[id] {
			row := make([]float64, 0, len(out.Columns))
			row = append(row, a.Rows[i]...)
			row = append(row, b.Rows[j]...)
			out.Rows = append(out.Rows, row)
			out.IDs = append(out.IDs, id)
		}
	}
	if out.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no shared identifiers between %s and %s", ErrEmptyData, a.Name, b.Name)
	}
	return out, nil
}
