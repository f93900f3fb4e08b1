package pipeline

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dogvoc/dogvoc-cli/internal/config"
	"github.com/dogvoc/dogvoc-cli/internal/dataset"
	"github.com/dogvoc/dogvoc-cli/internal/mca"
	"github.com/dogvoc/dogvoc-cli/internal/report"
)

// Config drives one batch run.
type Config struct {
	OutputDir     string
	Dataset       dataset.Options
	MCA           mca.Options
	Report        report.Options
	ResultsFormat string
	// Timestamped appends the run timestamp to every output name.
	Timestamped bool
	// Columns restricts the analysis to the named variables when set.
	Columns []string
	// Overview keeps a printable table overview in each FileResult.
	Overview bool
	Logger   *zap.Logger
	// Progress, when set, is called before each file is processed.
	Progress func(i, total int, path string)
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig writes untimestamped JSON results under dir.
func DefaultConfig(dir string) Config {
	return Config{
		OutputDir:     dir,
		Dataset:       dataset.DefaultOptions(),
		MCA:           mca.DefaultOptions(),
		Report:        report.DefaultOptions(),
		ResultsFormat: "json",
	}
}

// FromGlobal maps the user configuration onto a run configuration.
func FromGlobal(g *config.Global, log *zap.Logger) (Config, error) {
	c := DefaultConfig(g.OutputDir)
	c.Timestamped = g.Timestamped
	c.Columns = g.Columns
	c.ResultsFormat = g.ResultsFormat
	c.Logger = log

	c.Dataset.IDColumn = g.IDColumn
	c.Dataset.SheetName = g.SheetName
	if g.SheetIndex > 0 {
		c.Dataset.SheetIndex = g.SheetIndex
	}
	if g.Strict {
		c.Dataset.Fallback = nil
	}
	switch strings.ToLower(g.Delimiter) {
	case "":
	case "tab", `\t`, "\t":
		c.Dataset.Delimiter = '\t'
	case ",", ";", "|":
		c.Dataset.Delimiter = rune(g.Delimiter[0])
	default:
		return c, fmt.Errorf("unsupported delimiter: %q", g.Delimiter)
	}
	switch strings.ToLower(g.DecimalSeparator) {
	case "":
	case ",", "comma":
		c.Dataset.DecimalSeparator = ','
	case ".", "dot":
		c.Dataset.DecimalSeparator = '.'
	default:
		return c, fmt.Errorf("unsupported decimal separator: %q (use '.'|'comma')", g.DecimalSeparator)
	}

	c.MCA.Components = g.Components

	c.Report.SizeScale = g.Plot.SizeScale
	c.Report.SizeMin = g.Plot.SizeMin
	c.Report.DefaultSize = g.Plot.DefaultSize
	c.Report.WidthIn = g.Plot.WidthIn
	c.Report.HeightIn = g.Plot.HeightIn
	c.Report.DPI = g.Plot.DPI
	c.Report.Percentile = g.Plot.Percentile
	c.Report.HeatmapDims = g.Plot.HeatmapDims
	c.Report.TopN = g.Report.TopN
	c.Report.Logger = log
	return c, nil
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
