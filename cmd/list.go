package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dogvoc/dogvoc-cli/internal/pipeline"
	"github.com/dogvoc/dogvoc-cli/internal/results"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved MCA results",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := requireConfig()
		if err != nil {
			return err
		}
		dir := g.OutputDir
		if cmd.Flags().Changed("output") {
			dir = listOutput
		}
		paths, err := pipeline.ListResults(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(paths) == 0 {
			fmt.Fprintln(out, "(no results)")
			return nil
		}
		for _, p := range paths {
			res, err := results.Load(p)
			if err != nil {
				fmt.Fprintf(out, "- %s %s\n", filepath.Base(p), warnMark("(unreadable: "+err.Error()+")"))
				continue
			}
			fmt.Fprintf(out, "- %s: %s, %d rows, %d variables, %d components, %s explained (%s)\n",
				filepath.Base(p), res.Name, res.RowCount, len(res.Columns), res.Components,
				explained(res.ExplainedInertia), res.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "", "output directory (overrides output_dir)")
}
