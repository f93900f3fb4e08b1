package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cfgpkg "github.com/dogvoc/dogvoc-cli/internal/config"
	"github.com/dogvoc/dogvoc-cli/internal/pipeline"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a workspace with a starter config.yaml and output folders",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		cfgPath := filepath.Join(dir, "config.yaml")
		// Refuse to overwrite an existing workspace config.
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat config: %w", err)
		}

		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		c.OutputDir = filepath.Join(dir, "output")
		for i, f := range c.InputFiles {
			if !filepath.IsAbs(f) {
				c.InputFiles[i] = filepath.Join(dir, f)
			}
		}
		a := &c.Associations
		for _, p := range []*string{&a.GrowlFile, &a.OriginFile, &a.KeepFile, &a.ProblemsFile} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(dir, *p)
			}
		}

		for _, d := range []string{
			filepath.Join(dir, "data", "raw"),
			filepath.Join(c.OutputDir, pipeline.ResultsDir),
			filepath.Join(c.OutputDir, pipeline.ReportsDir),
			filepath.Join(c.OutputDir, pipeline.PlotsDir),
		} {
			if err := utils.EnsureDir(d); err != nil {
				return err
			}
		}
		if err := cfgpkg.Save(c, cfgPath); err != nil {
			return err
		}
		printf("%s Workspace initialized: %s\n", okMark("✓"), dir)
		printf("   run with: dogvoc --config %s mca\n", cfgPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
}
