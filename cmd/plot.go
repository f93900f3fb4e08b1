package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dogvoc/dogvoc-cli/internal/pipeline"
)

var (
	plotOutput     string
	plotPercentile float64
	plotDPI        int
)

var plotCmd = &cobra.Command{
	Use:   "plot [results...]",
	Short: "Re-render reports and figures from saved MCA results",
	Long: `Re-render the markdown report and the 2x2 figure for each saved results
file. Without arguments every results file in the output directory is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := requireConfig()
		if err != nil {
			return err
		}
		gc := *g
		f := cmd.Flags()
		if f.Changed("output") {
			gc.OutputDir = plotOutput
		}
		if f.Changed("percentile") {
			gc.Plot.Percentile = plotPercentile
		}
		if f.Changed("dpi") {
			gc.Plot.DPI = plotDPI
		}
		if err := gc.Validate(); err != nil {
			return err
		}

		paths := expandInputs(args)
		if len(args) == 0 {
			paths, err = pipeline.ListResults(gc.OutputDir)
			if err != nil {
				return err
			}
		}
		if len(paths) == 0 {
			return fmt.Errorf("no results files found in %s", filepath.Join(gc.OutputDir, pipeline.ResultsDir))
		}

		pc, err := pipeline.FromGlobal(&gc, logger)
		if err != nil {
			return err
		}
		pc.Progress = func(i, total int, path string) {
			printf("[%d/%d] Rendering %s...\n", i, total, filepath.Base(path))
		}
		s := pipeline.RenderFromResults(pc, paths)
		for _, fr := range s.Files {
			if fr.Err != nil {
				printf("%s %s: %v\n", warnMark("⚠"), filepath.Base(fr.Input), fr.Err)
				continue
			}
			printf("%s %s → %s\n", okMark("✓"), fr.Name, fr.PlotPath)
		}
		if s.Succeeded() == 0 {
			return fmt.Errorf("no results file could be rendered")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "output directory (overrides output_dir)")
	plotCmd.Flags().Float64Var(&plotPercentile, "percentile", 20, "link variables closer than this percentile of pairwise distances")
	plotCmd.Flags().IntVar(&plotDPI, "dpi", 150, "figure resolution")
}
