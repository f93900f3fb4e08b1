package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dogvoc/dogvoc-cli/internal/pipeline"
)

var (
	mcaOutput      string
	mcaComponents  int
	mcaFormat      string
	mcaStrict      bool
	mcaTimestamped bool
	mcaSheetName   string
	mcaSheetIndex  int
	mcaDelimiter   string
	mcaColumns     []string
	mcaOverview    bool
)

var mcaCmd = &cobra.Command{
	Use:   "mca [files...]",
	Short: "Run MCA over each CSV/TSV/XLSX file and write results, reports and plots",
	Long: `Run Multiple Correspondence Analysis over each input table in turn.
Files default to input_files from the configuration. A file that cannot be
loaded or analyzed is reported and skipped; the rest of the batch continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := requireConfig()
		if err != nil {
			return err
		}
		gc := *g
		f := cmd.Flags()
		if f.Changed("output") {
			gc.OutputDir = mcaOutput
		}
		if f.Changed("components") {
			gc.Components = mcaComponents
		}
		if f.Changed("format") {
			gc.ResultsFormat = mcaFormat
		}
		if f.Changed("strict") {
			gc.Strict = mcaStrict
		}
		if f.Changed("timestamped") {
			gc.Timestamped = mcaTimestamped
		}
		if f.Changed("sheet-name") {
			gc.SheetName = mcaSheetName
		}
		if f.Changed("sheet-index") {
			gc.SheetIndex = mcaSheetIndex
		}
		if f.Changed("delimiter") {
			gc.Delimiter = mcaDelimiter
		}
		if f.Changed("columns") {
			gc.Columns = mcaColumns
		}
		if err := gc.Validate(); err != nil {
			return err
		}

		patterns := args
		if len(patterns) == 0 {
			patterns = gc.InputFiles
		}
		files := expandInputs(patterns)
		if len(files) == 0 {
			return fmt.Errorf("no input files given; pass files or set input_files")
		}

		pc, err := pipeline.FromGlobal(&gc, logger)
		if err != nil {
			return err
		}
		pc.Overview = mcaOverview
		pc.Progress = func(i, total int, path string) {
			printf("[%d/%d] Processing %s...\n", i, total, filepath.Base(path))
		}
		s := pipeline.Run(pc, files)
		for _, fr := range s.Files {
			if fr.Overview != "" {
				printf("%s\n", fr.Overview)
			}
			if fr.Err != nil {
				printf("%s %s: %v\n", warnMark("⚠"), filepath.Base(fr.Input), fr.Err)
				continue
			}
			printf("%s %s: %d components, %s explained → %s\n", okMark("✓"), filepath.Base(fr.Input),
				fr.Components, explained(fr.Explained), fr.ResultsPath)
			if len(fr.Dropped) > 0 {
				printf("   constant columns excluded: %s\n", strings.Join(fr.Dropped, ", "))
			}
			if fr.Unmatched > 0 {
				printf("   %s %d variable(s) plotted with default size\n", warnMark("⚠"), fr.Unmatched)
			}
		}
		if s.IndexPath != "" {
			printf("Summary: %d succeeded, %d failed (%s)\n", s.Succeeded(), s.Failed(), s.IndexPath)
		}
		if s.Succeeded() == 0 {
			return fmt.Errorf("no file was processed successfully")
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that match nothing (so
// missing files are reported per file) and drops duplicates.
func expandInputs(patterns []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range patterns {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files
}

func explained(xs []float64) string {
	var s float64
	for _, x := range xs {
		s += x
	}
	return fmt.Sprintf("%.1f%%", s*100)
}

func init() {
	rootCmd.AddCommand(mcaCmd)
	mcaCmd.Flags().StringVarP(&mcaOutput, "output", "o", "", "output directory (overrides output_dir)")
	mcaCmd.Flags().IntVarP(&mcaComponents, "components", "n", 3, "number of dimensions to retain")
	mcaCmd.Flags().StringVar(&mcaFormat, "format", "json", "results format: json | yaml")
	mcaCmd.Flags().BoolVar(&mcaStrict, "strict", false, "fail a file on non-numeric cells instead of using 0")
	mcaCmd.Flags().BoolVar(&mcaTimestamped, "timestamped", true, "append the run timestamp to output names")
	mcaCmd.Flags().StringVar(&mcaSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	mcaCmd.Flags().IntVar(&mcaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	mcaCmd.Flags().StringVar(&mcaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	mcaCmd.Flags().StringSliceVar(&mcaColumns, "columns", nil, "comma-separated variables to analyze (default all)")
	mcaCmd.Flags().BoolVar(&mcaOverview, "overview", false, "print a column overview of each table")
}
