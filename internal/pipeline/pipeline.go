// Package pipeline runs the per-file MCA batch: load, fit, serialize,
// report, plot. Files are processed one at a time and a failure only
// affects the file it happened on.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dogvoc/dogvoc-cli/internal/dataset"
	"github.com/dogvoc/dogvoc-cli/internal/mca"
	"github.com/dogvoc/dogvoc-cli/internal/report"
	"github.com/dogvoc/dogvoc-cli/internal/results"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

// Output subdirectories under Config.OutputDir.
const (
	ResultsDir = "results"
	ReportsDir = "reports"
	PlotsDir   = "plots"
	IndexFile  = "mca_summary.md"
)

// Stage names where a file can fail.
const (
	StageLoad      = "load"
	StageFit       = "fit"
	StageSerialize = "serialize"
	StageReport    = "report"
	StagePlot      = "plot"
)

// FileResult is the outcome for one input.
type FileResult struct {
	Input       string
	Name        string
	ResultsPath string
	ReportPath  string
	PlotPath    string
	Rows        int
	Components  int
	Explained   []float64
	Dropped     []string
	Coerced     int
	Unmatched   int
	Overview    string
	Stage       string
	Err         error
}

// OK reports whether every stage succeeded.
func (f FileResult) OK() bool { return f.Err == nil }

// Summary collects the outcome of a batch.
type Summary struct {
	Files     []FileResult
	IndexPath string
	Started   time.Time
	Finished  time.Time
}

// Succeeded counts files without errors.
func (s *Summary) Succeeded() int {
	n := 0
	for _, f := range s.Files {
		if f.OK() {
			n++
		}
	}
	return n
}

// Failed counts files with errors.
func (s *Summary) Failed() int { return len(s.Files) - s.Succeeded() }

// Run processes files sequentially. Errors are recorded per file and never
// stop the batch; the returned summary is also written as an index.
func Run(cfg Config, files []string) *Summary {
	log := cfg.logger()
	s := &Summary{Started: cfg.now()}
	stamp := utils.Timestamp(s.Started)
	used := map[string]int{}

	for i, path := range files {
		if cfg.Progress != nil {
			cfg.Progress(i+1, len(files), path)
		}
		base := outputBase(utils.Stem(path), stamp, cfg.Timestamped, used)
		fr := processFile(cfg, path, base)
		if fr.Err != nil {
			log.Error("file failed", zap.String("file", path), zap.String("stage", fr.Stage), zap.Error(fr.Err))
		} else {
			log.Info("file processed", zap.String("file", path), zap.Int("components", fr.Components))
		}
		s.Files = append(s.Files, fr)
	}

	s.Finished = cfg.now()
	writeIndex(cfg, s)
	return s
}

// outputBase returns mca_<stem>[_<stamp>], suffixed __2, __3... when the
// same name was already used in this run.
func outputBase(stem, stamp string, timestamped bool, used map[string]int) string {
	base := "mca_" + stem
	if timestamped {
		base += "_" + stamp
	}
	return unique(base, used)
}

func unique(base string, used map[string]int) string {
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s__%d", base, n)
	}
	return base
}

func processFile(cfg Config, path, base string) FileResult {
	fr := FileResult{Input: path, Name: utils.Stem(path)}
	fail := func(stage string, err error) FileResult {
		fr.Stage, fr.Err = stage, err
		return fr
	}

	t, err := dataset.Load(path, cfg.Dataset)
	if err != nil {
		return fail(StageLoad, err)
	}
	if len(cfg.Columns) > 0 {
		if t, err = t.Select(cfg.Columns...); err != nil {
			return fail(StageLoad, err)
		}
	}
	fr.Rows, fr.Coerced = t.NumRows(), t.Coerced
	if cfg.Overview {
		fr.Overview = t.Overview(12)
	}

	m, err := mca.Fit(t, cfg.MCA)
	if err != nil {
		return fail(StageFit, fmt.Errorf("fit %s: %w", fr.Name, err))
	}
	fr.Dropped = m.Dropped
	if m.Components() < m.Requested {
		cfg.logger().Warn("components capped to available dimensions",
			zap.String("file", path), zap.Int("requested", m.Requested), zap.Int("available", m.Components()))
	}

	res, err := results.FromModel(fr.Name, m)
	if err != nil {
		return fail(StageSerialize, err)
	}
	res.Source = path
	fr.Components = res.Components
	fr.Explained = res.ExplainedInertia

	fr.ResultsPath = filepath.Join(cfg.OutputDir, ResultsDir, base+"_results"+results.Ext(cfg.ResultsFormat))
	if err := res.Save(fr.ResultsPath); err != nil {
		return fail(StageSerialize, fmt.Errorf("save results: %w", err))
	}
	return render(cfg, res, base, fr)
}

// render writes the markdown report and the figure for res.
func render(cfg Config, res *results.Results, base string, fr FileResult) FileResult {
	fr.ReportPath = filepath.Join(cfg.OutputDir, ReportsDir, base+"_report.md")
	if err := utils.SafeWriteFile(fr.ReportPath, []byte(report.Markdown(res, cfg.Report))); err != nil {
		fr.Stage, fr.Err = StageReport, fmt.Errorf("write report: %w", err)
		return fr
	}

	fr.PlotPath = filepath.Join(cfg.OutputDir, PlotsDir, base+".png")
	stats, err := report.RenderPNG(res, fr.PlotPath, cfg.Report)
	if err != nil {
		fr.Stage, fr.Err = StagePlot, err
		fr.PlotPath = ""
		return fr
	}
	fr.Unmatched = stats.Unmatched
	return fr
}

// RenderFromResults re-renders reports and figures from saved result files,
// without access to the source tables.
func RenderFromResults(cfg Config, paths []string) *Summary {
	log := cfg.logger()
	s := &Summary{Started: cfg.now()}
	used := map[string]int{}
	for i, path := range paths {
		if cfg.Progress != nil {
			cfg.Progress(i+1, len(paths), path)
		}
		fr := FileResult{Input: path, Name: utils.Stem(path), ResultsPath: path}
		res, err := results.Load(path)
		if err != nil {
			fr.Stage, fr.Err = StageLoad, err
			log.Error("results unreadable", zap.String("file", path), zap.Error(err))
			s.Files = append(s.Files, fr)
			continue
		}
		fr.Name = res.Name
		fr.Rows, fr.Components, fr.Explained, fr.Dropped = res.RowCount, res.Components, res.ExplainedInertia, res.DroppedColumns
		base := unique(strings.TrimSuffix(utils.Stem(path), "_results"), used)
		fr = render(cfg, res, base, fr)
		if fr.Err != nil {
			log.Error("render failed", zap.String("file", path), zap.Error(fr.Err))
		}
		s.Files = append(s.Files, fr)
	}
	s.Finished = cfg.now()
	writeIndex(cfg, s)
	return s
}

func writeIndex(cfg Config, s *Summary) {
	if len(s.Files) == 0 {
		return
	}
	s.IndexPath = filepath.Join(cfg.OutputDir, IndexFile)
	if err := utils.SafeWriteFile(s.IndexPath, []byte(s.Markdown(cfg.OutputDir))); err != nil {
		cfg.logger().Warn("index not written", zap.String("path", s.IndexPath), zap.Error(err))
		s.IndexPath = ""
	}
}

// Markdown renders the batch index. Paths are shown relative to dir.
func (s *Summary) Markdown(dir string) string {
	var b strings.Builder
	b.WriteString("# MCA Batch Summary\n\n")
	fmt.Fprintf(&b, "- Started: %s\n", s.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Files: %d (%d succeeded, %d failed)\n\n", len(s.Files), s.Succeeded(), s.Failed())

	rows := make([][]string, 0, len(s.Files))
	for _, f := range s.Files {
		status := "ok"
		if f.Err != nil {
			status = "failed at " + f.Stage
		}
		var inertia string
		if len(f.Explained) > 0 {
			cum := report.Cumulative(f.Explained)
			inertia = fmt.Sprintf("%.1f%%", cum[len(cum)-1]*100)
		}
		rows = append(rows, []string{
			filepath.Base(f.Input), status, fmt.Sprint(f.Rows), fmt.Sprint(f.Components), inertia,
			rel(dir, f.ResultsPath), rel(dir, f.ReportPath), rel(dir, f.PlotPath),
		})
	}
	b.WriteString(utils.MarkdownTable([]string{"File", "Status", "Rows", "Components", "Inertia", "Results", "Report", "Plot"}, rows))

	var errs []FileResult
	for _, f := range s.Files {
		if f.Err != nil {
			errs = append(errs, f)
		}
	}
	if len(errs) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, f := range errs {
			fmt.Fprintf(&b, "- %s: %v\n", filepath.Base(f.Input), f.Err)
		}
	}
	return b.String()
}

func rel(dir, path string) string {
	if path == "" {
		return ""
	}
	if r, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}

// ListResults returns the saved result files under dir/results, sorted by
// name.
func ListResults(dir string) ([]string, error) {
	root := filepath.Join(dir, ResultsDir)
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", ".yaml", ".yml":
			if strings.HasSuffix(stem, "_results") {
				out = append(out, filepath.Join(root, name))
			}
		}
	}
	return out, nil
}
