package associations

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dogvoc/dogvoc-cli/internal/dataset"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

// Inputs are the survey tables. Growl is required; each analysis that needs
// a missing table is skipped with a warning.
type Inputs struct {
	Growl    *dataset.Table
	Origin   *dataset.Table
	Keep     *dataset.Table
	Problems *dataset.Table
}

// Options configure Analyze.
type Options struct {
	Clusters      int
	Seed          int64
	Alpha         float64
	VocalProblems []string
	Logger        *zap.Logger
}

// DefaultOptions mirrors the survey's reference analysis.
func DefaultOptions() Options {
	return Options{
		Clusters: 4,
		Seed:     42,
		Alpha:    0.05,
		VocalProblems: []string{
			"problems_He_she_barks_too_much",
			"problems_Aggression_towards_people",
			"problems_Aggression_towards_other_dogs",
		},
	}
}

// Share is the percentage of observations with a non-zero value in a column.
type Share struct {
	Column  string
	Percent float64
}

// OriginResult is the chi-square test of one origin column against clusters.
type OriginResult struct {
	Column string
	*ChiSquareResult
	Significant bool
}

// Correlation relates one keeping condition to one vocal problem.
type Correlation struct {
	Keep        string
	Problem     string
	R           float64
	PValue      float64
	N           int
	Significant bool
}

// DatasetInfo describes one loaded input.
type DatasetInfo struct {
	Name    string
	Rows    int
	Columns []string
}

// Report collects every association finding.
type Report struct {
	Alpha        float64
	Datasets     []DatasetInfo
	Targets      []Share
	Clustering   *Clustering
	Origin       []OriginResult
	Correlations []Correlation
	Warnings     []string
}

// TargetShares returns, per column, the percentage of rows with a non-zero
// value, highest first.
func TargetShares(t *dataset.Table) []Share {
	out := make([]Share, t.NumCols())
	for j, c := range t.Columns {
		var hits int
		for _, row := range t.Rows {
			if row[j] != 0 {
				hits++
			}
		}
		out[j] = Share{Column: c}
		if t.NumRows() > 0 {
			out[j].Percent = float64(hits) / float64(t.NumRows()) * 100
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Percent > out[b].Percent })
	return out
}

// Analyze runs the growling, origin and keeping-condition analyses.
func Analyze(in Inputs, opt Options) (*Report, error) {
	if in.Growl == nil || in.Growl.NumRows() == 0 {
		return nil, fmt.Errorf("%w: growling table is required", ErrInsufficientData)
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rep := &Report{Alpha: opt.Alpha}
	warn := func(msg string, fields ...zap.Field) {
		rep.Warnings = append(rep.Warnings, msg)
		log.Warn(msg, fields...)
	}
	for _, t := range []*dataset.Table{in.Growl, in.Origin, in.Keep, in.Problems} {
		if t != nil {
			rep.Datasets = append(rep.Datasets, DatasetInfo{Name: t.Name, Rows: t.NumRows(), Columns: t.Columns})
		}
	}

	rep.Targets = TargetShares(in.Growl)
	cl, err := KMeans(in.Growl, opt.Clusters, opt.Seed)
	if err != nil {
		return nil, fmt.Errorf("cluster growling patterns: %w", err)
	}
	rep.Clustering = cl
	log.Debug("clustered", zap.Int("k", cl.K), zap.Ints("sizes", cl.Sizes))

	if in.Origin == nil {
		warn("origin table not loaded; origin impact skipped")
	} else if labels, rows, ok := alignLabels(in.Growl, in.Origin, cl.Labels); !ok {
		warn(fmt.Sprintf("cannot align %s with %s; origin impact skipped", in.Origin.Name, in.Growl.Name))
	} else {
		for j, col := range in.Origin.Columns {
			values := make([]float64, len(rows))
			for k, i := range rows {
				values[k] = in.Origin.Rows[i][j]
			}
			res, err := ChiSquare(labels, values)
			if errors.Is(err, ErrInsufficientData) {
				warn(fmt.Sprintf("origin %s: %v", col, err))
				continue
			}
			if err != nil {
				return nil, err
			}
			rep.Origin = append(rep.Origin, OriginResult{Column: col, ChiSquareResult: res, Significant: res.PValue < opt.Alpha})
		}
	}

	switch {
	case in.Keep == nil || in.Problems == nil:
		warn("keeping or problems table not loaded; keeping conditions skipped")
	default:
		merged, err := dataset.Merge(in.Keep, in.Problems)
		if err != nil {
			warn(fmt.Sprintf("merge %s with %s: %v", in.Keep.Name, in.Problems.Name, err))
			break
		}
		for _, p := range opt.VocalProblems {
			y, ok := merged.Column(p)
			if !ok {
				warn(fmt.Sprintf("vocal problem column %s not found", p))
				continue
			}
			for _, k := range in.Keep.Columns {
				x, _ := merged.Column(k)
				r, pv, err := Pearson(x, y)
				if err != nil {
					warn(fmt.Sprintf("%s vs %s: %v", k, p, err))
					continue
				}
				rep.Correlations = append(rep.Correlations, Correlation{
					Keep: k, Problem: p, R: r, PValue: pv, N: len(x), Significant: pv < opt.Alpha,
				})
			}
		}
		sort.SliceStable(rep.Correlations, func(a, b int) bool {
			return rep.Correlations[a].Keep < rep.Correlations[b].Keep
		})
	}
	return rep, nil
}

// alignLabels pairs cluster labels with rows of other. Identifiers are used
// when both tables carry them; otherwise rows pair by position.
func alignLabels(base, other *dataset.Table, labels []int) ([]int, []int, bool) {
	if len(base.IDs) == base.NumRows() && len(other.IDs) == other.NumRows() && len(base.IDs) > 0 {
		byID := make(map[string]int, len(base.IDs))
		for i, id := range base.IDs {
			byID[id] = labels[i]
		}
		var outLabels, rows []int
		for i, id := range other.IDs {
			if l, ok := byID[id]; ok {
				outLabels = append(outLabels, l)
				rows = append(rows, i)
			}
		}
		return outLabels, rows, len(rows) > 0
	}
	if other.NumRows() != len(labels) {
		return nil, nil, false
	}
	rows := make([]int, len(labels))
	for i := range rows {
		rows[i] = i
	}
	return labels, rows, true
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Dog Vocalization Analysis Results\n\n")

	b.WriteString("## Data Overview\n\n")
	for _, d := range r.Datasets {
		fmt.Fprintf(&b, "#### %s\n", d.Name)
		fmt.Fprintf(&b, "- Number of records: %d\n", d.Rows)
		fmt.Fprintf(&b, "- Number of features: %d\n", len(d.Columns))
		fmt.Fprintf(&b, "- Features: %s\n\n", strings.Join(d.Columns, ", "))
	}

	b.WriteString("## Growling Patterns\n\n### Growling Target Analysis\n\n")
	b.WriteString("Percentage of dogs that growl at different targets:\n\n")
	for _, s := range r.Targets {
		fmt.Fprintf(&b, "- %s: %.1f%%\n", trim(s.Column, "growl_to_whom_"), s.Percent)
	}

	if cl := r.Clustering; cl != nil {
		b.WriteString("\n### Behavioral Clusters\n\n")
		total := len(cl.Labels)
		for c := 0; c < cl.K; c++ {
			fmt.Fprintf(&b, "#### Cluster %d (%.1f%% of dogs)\n", c, float64(cl.Sizes[c])/float64(total)*100)
			b.WriteString("Characteristics:\n")
			type feat struct {
				name string
				z    float64
			}
			var feats []feat
			for j, name := range cl.Columns {
				if z := cl.Centroids[c][j]; z > 0.1 {
					feats = append(feats, feat{name, z})
				}
			}
			sort.SliceStable(feats, func(a, b int) bool { return feats[a].z > feats[b].z })
			for _, f := range feats {
				fmt.Fprintf(&b, "- %s: %.2f SD from mean\n", trim(f.name, "growl_to_whom_"), f.z)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Origin) > 0 {
		b.WriteString("## Origin Impact\n\n### Statistical Analysis of Origin Impact\n\n")
		for _, o := range r.Origin {
			fmt.Fprintf(&b, "#### %s\n", trim(o.Column, "origin_"))
			fmt.Fprintf(&b, "- Chi-square statistic: %.2f\n", o.Statistic)
			fmt.Fprintf(&b, "- Degrees of freedom: %d\n", o.DoF)
			fmt.Fprintf(&b, "- p-value: %.4f\n", o.PValue)
			if o.Significant {
				b.WriteString("- **Statistically significant relationship found**\n")
			}
			b.WriteString("\nDistribution across clusters:\n\n")
			header := []string{"Cluster"}
			for _, l := range o.Levels {
				header = append(header, fmt.Sprintf("%g", l))
			}
			rows := make([][]string, len(o.Clusters))
			for i, c := range o.Clusters {
				rows[i] = []string{fmt.Sprint(c)}
				for _, p := range o.RowPercent[i] {
					rows[i] = append(rows[i], fmt.Sprintf("%.1f", p))
				}
			}
			b.WriteString(utils.MarkdownTable(header, rows))
			b.WriteString("\n")
		}
	}

	if len(r.Correlations) > 0 {
		b.WriteString("## Keeping Conditions\n\n### Keeping Conditions Impact Analysis\n\n")
		b.WriteString("Correlation analysis between keeping conditions and vocalization problems:\n\n")
		rows := make([][]string, 0, len(r.Correlations))
		for _, c := range r.Correlations {
			sig := ""
			if c.Significant {
				sig = "yes"
			}
			rows = append(rows, []string{
				trim(c.Keep, "keep_"), trim(c.Problem, "problems_"),
				fmt.Sprintf("%.3f", c.R), fmt.Sprintf("%.4f", c.PValue), fmt.Sprint(c.N), sig,
			})
		}
		b.WriteString(utils.MarkdownTable([]string{"Keeping condition", "Problem", "r", "p-value", "n", "Significant"}, rows))
		fmt.Fprintf(&b, "\nSignificance level: p < %g\n", r.Alpha)
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func trim(col, prefix string) string {
	return strings.TrimPrefix(col, prefix)
}
