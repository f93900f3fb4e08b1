package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

// Overview renders a short markdown description of the table: size, column
// names and the value distribution of the first maxCols columns.
func (t *Table) Overview(maxCols int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Total Rows: %d\n", t.NumRows()))
	b.WriteString(fmt.Sprintf("Columns (%d): %s\n", t.NumCols(), strings.Join(t.Columns, ", ")))
	if t.Coerced > 0 {
		b.WriteString(fmt.Sprintf("Coerced cells: %d (replaced by fallback)\n", t.Coerced))
	}
	if maxCols <= 0 || maxCols > t.NumCols() {
		maxCols = t.NumCols()
	}
	if maxCols == 0 || t.NumRows() == 0 {
		return b.String()
	}
	rows := make([][]string, 0, maxCols)
	for j := 0; j < maxCols; j++ {
		counts := map[float64]int{}
		for _, row := range t.Rows {
			counts[row[j]]++
		}
		vals := make([]float64, 0, len(counts))
		for v := range counts {
			vals = append(vals, v)
		}
		sort.Float64s(vals)
		parts := make([]string, 0, len(vals))
		for i, v := range vals {
			if i == 6 {
				parts = append(parts, "...")
				break
			}
			pct := float64(counts[v]) * 100 / float64(t.NumRows())
			parts = append(parts, fmt.Sprintf("%s: %.1f%%", strconv.FormatFloat(v, 'g', -1, 64), pct))
		}
		rows = append(rows, []string{t.Columns[j], strconv.Itoa(len(vals)), strings.Join(parts, ", ")})
	}
	b.WriteString("\n")
	b.WriteString(utils.MarkdownTable([]string{"Column", "Distinct", "Value shares"}, rows))
	return b.String()
}
