package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dogvoc/dogvoc-cli/internal/associations"
	"github.com/dogvoc/dogvoc-cli/internal/dataset"
	"github.com/dogvoc/dogvoc-cli/internal/pipeline"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

var (
	assocOutput   string
	assocClusters int
	assocSeed     int64
)

var associationsCmd = &cobra.Command{
	Use:   "associations",
	Short: "Cluster growling patterns and test origin and keeping-condition associations",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := requireConfig()
		if err != nil {
			return err
		}
		a := g.Associations
		out := g.OutputDir
		f := cmd.Flags()
		if f.Changed("output") {
			out = assocOutput
		}
		if f.Changed("clusters") {
			a.Clusters = assocClusters
		}
		if f.Changed("seed") {
			a.Seed = assocSeed
		}

		pc, err := pipeline.FromGlobal(g, logger)
		if err != nil {
			return err
		}
		load := func(role, path string, required bool) (*dataset.Table, error) {
			if path == "" {
				return nil, nil
			}
			t, err := dataset.Load(path, pc.Dataset)
			if err == nil {
				printf("%s Loaded %s: %d rows, %d columns\n", okMark("✓"), filepath.Base(path), t.NumRows(), t.NumCols())
				return t, nil
			}
			if required {
				return nil, fmt.Errorf("load %s table: %w", role, err)
			}
			if errors.Is(err, dataset.ErrFileNotFound) || errors.Is(err, dataset.ErrEmptyData) {
				printf("%s %s table skipped: %v\n", warnMark("⚠"), role, err)
				logger.Warn("optional table unavailable", zap.String("role", role), zap.Error(err))
				return nil, nil
			}
			return nil, fmt.Errorf("load %s table: %w", role, err)
		}

		var in associations.Inputs
		if in.Growl, err = load("growl", a.GrowlFile, true); err != nil {
			return err
		}
		if in.Origin, err = load("origin", a.OriginFile, false); err != nil {
			return err
		}
		if in.Keep, err = load("keep", a.KeepFile, false); err != nil {
			return err
		}
		if in.Problems, err = load("problems", a.ProblemsFile, false); err != nil {
			return err
		}

		rep, err := associations.Analyze(in, associations.Options{
			Clusters:      a.Clusters,
			Seed:          a.Seed,
			Alpha:         a.Alpha,
			VocalProblems: a.VocalProblems,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		path := filepath.Join(out, "analysis_results.md")
		if err := utils.SafeWriteFile(path, []byte(rep.Markdown())); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		sig := 0
		for _, o := range rep.Origin {
			if o.Significant {
				sig++
			}
		}
		for _, c := range rep.Correlations {
			if c.Significant {
				sig++
			}
		}
		printf("%s %d clusters, %d significant associations → %s\n", okMark("✓"), rep.Clustering.K, sig, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(associationsCmd)
	associationsCmd.Flags().StringVarP(&assocOutput, "output", "o", "", "output directory (overrides output_dir)")
	associationsCmd.Flags().IntVar(&assocClusters, "clusters", 4, "number of k-means clusters")
	associationsCmd.Flags().Int64Var(&assocSeed, "seed", 42, "k-means seed")
}
