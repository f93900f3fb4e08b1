package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dogvoc/dogvoc-cli/internal/network"
	"github.com/dogvoc/dogvoc-cli/internal/results"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

// Ranked is a variable and its contribution to one dimension.
type Ranked struct {
	Variable     string
	Contribution float64
}

// TopContributors returns up to n variables ordered by decreasing
// contribution to dimension dim (0-based). Variables without a usable
// contribution are skipped.
func TopContributors(res *results.Results, dim, n int) []Ranked {
	var out []Ranked
	for _, c := range res.Columns {
		v, ok := res.Contribution(c)
		if !ok || dim >= len(v) {
			continue
		}
		out = append(out, Ranked{Variable: c, Contribution: v[dim]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Contribution > out[j].Contribution })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Cumulative returns the running sum of the explained inertia ratios.
func Cumulative(explained []float64) []float64 {
	out := make([]float64, len(explained))
	var s float64
	for i, x := range explained {
		s += x
		out[i] = s
	}
	return out
}

// Markdown renders the textual report for one result set.
func Markdown(res *results.Results, opt Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# MCA Report: %s\n\n", utils.Title(res.Name))
	fmt.Fprintf(&b, "- Run: %s\n", res.RunID)
	if !res.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Created: %s\n", res.CreatedAt.Format(time.RFC3339))
	}
	if res.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", res.Source)
	}
	fmt.Fprintf(&b, "- Observations: %d\n", res.RowCount)
	fmt.Fprintf(&b, "- Variables: %d\n", len(res.Columns))
	fmt.Fprintf(&b, "- Components: %d\n\n", res.Components)

	b.WriteString("## Explained Inertia\n\n")
	cum := Cumulative(res.ExplainedInertia)
	for i, x := range res.ExplainedInertia {
		fmt.Fprintf(&b, "Dimension %d: %.2f%% (Cumulative: %.2f%%)\n", i+1, x*100, cum[i]*100)
	}
	b.WriteString("\n")
	rows := make([][]string, 0, len(res.ExplainedInertia))
	for i, x := range res.ExplainedInertia {
		eig := ""
		if i < len(res.Eigenvalues) {
			eig = fmt.Sprintf("%.4f", res.Eigenvalues[i])
		}
		rows = append(rows, []string{fmt.Sprintf("Dim %d", i+1), eig, pct(x), pct(cum[i])})
	}
	b.WriteString(utils.MarkdownTable([]string{"Dimension", "Eigenvalue", "Explained", "Cumulative"}, rows))
	fmt.Fprintf(&b, "\nTotal inertia: %.4f\n\n", res.TotalInertia)

	b.WriteString("## Top Contributing Variables\n\n")
	for d := 0; d < res.Components; d++ {
		fmt.Fprintf(&b, "### Dimension %d\n\n", d+1)
		top := TopContributors(res, d, opt.TopN)
		if len(top) == 0 {
			b.WriteString("_No contributions available._\n\n")
			continue
		}
		rows := make([][]string, 0, len(top))
		for i, r := range top {
			rows = append(rows, []string{fmt.Sprint(i + 1), r.Variable, pct(r.Contribution)})
		}
		b.WriteString(utils.MarkdownTable([]string{"Rank", "Variable", "Contribution"}, rows))
		b.WriteString("\n")
	}

	b.WriteString("## Column Coordinates\n\n")
	header := []string{"Variable"}
	for d := 0; d < res.Components; d++ {
		header = append(header, fmt.Sprintf("Dim %d", d+1))
	}
	rows = rows[:0]
	for _, c := range res.Columns {
		row := []string{c}
		coord, ok := res.Coordinate(c)
		for d := 0; d < res.Components; d++ {
			if ok && d < len(coord) {
				row = append(row, fmt.Sprintf("%.4f", coord[d]))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	b.WriteString(utils.MarkdownTable(header, rows))
	b.WriteString("\n")

	if opt.Percentile > 0 {
		if names, coords := plottable(res); len(names) > 1 {
			if p, err := network.Build(names, coords, opt.Percentile); err == nil {
				b.WriteString("## Proximity\n\n")
				fmt.Fprintf(&b, "Variables closer than the %.0fth percentile of pairwise distances (%.4f) are linked; %d links.\n\n",
					opt.Percentile, p.Threshold, len(p.Edges()))
				if hubs := p.Hubs(opt.TopN); len(hubs) > 0 {
					bc := p.Betweenness()
					rows := make([][]string, 0, len(hubs))
					for _, h := range hubs {
						rows = append(rows, []string{h.Name, fmt.Sprint(h.Degree), fmt.Sprintf("%.2f", bc[h.Name])})
					}
					b.WriteString(utils.MarkdownTable([]string{"Variable", "Links", "Betweenness"}, rows))
					b.WriteString("\n")
				}
			}
		}
	}

	if len(res.DroppedColumns) > 0 || res.InvalidColumns > 0 || res.InvalidRows > 0 {
		b.WriteString("## Notes\n\n")
		if len(res.DroppedColumns) > 0 {
			fmt.Fprintf(&b, "- Constant columns excluded: %s\n", strings.Join(res.DroppedColumns, ", "))
		}
		if res.InvalidColumns > 0 {
			fmt.Fprintf(&b, "- Variables with non-finite coordinates: %d\n", res.InvalidColumns)
		}
		if res.InvalidRows > 0 {
			fmt.Fprintf(&b, "- Observations with non-finite coordinates: %d\n", res.InvalidRows)
		}
	}
	return b.String()
}

// plottable returns the variables that have coordinates of full length, in
// column order.
func plottable(res *results.Results) ([]string, [][]float64) {
	var (
		names  []string
		coords [][]float64
	)
	for _, c := range res.Columns {
		v, ok := res.Coordinate(c)
		if !ok || len(v) != res.Components {
			continue
		}
		names = append(names, c)
		coords = append(coords, v)
	}
	return names, coords
}

func pct(x float64) string { return fmt.Sprintf("%.2f%%", x*100) }
