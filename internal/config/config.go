package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	InputFiles       []string `mapstructure:"input_files" yaml:"input_files"`
	Columns          []string `mapstructure:"columns" yaml:"columns"`
	OutputDir        string   `mapstructure:"output_dir" yaml:"output_dir"`
	Components       int      `mapstructure:"components" yaml:"components"`
	IDColumn         string   `mapstructure:"id_column" yaml:"id_column"`
	Delimiter        string   `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	SheetName        string   `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex       int      `mapstructure:"sheet_index" yaml:"sheet_index"`
	// Strict rejects non-numeric cells instead of replacing them with 0.
	Strict        bool   `mapstructure:"strict" yaml:"strict"`
	Timestamped   bool   `mapstructure:"timestamped" yaml:"timestamped"`
	ResultsFormat string `mapstructure:"results_format" yaml:"results_format"`

	Plot         Plot         `mapstructure:"plot" yaml:"plot"`
	Report       Report       `mapstructure:"report" yaml:"report"`
	Associations Associations `mapstructure:"associations" yaml:"associations"`
}

// Plot holds figure rendering settings.
type Plot struct {
	SizeScale   float64 `mapstructure:"size_scale" yaml:"size_scale"`
	SizeMin     float64 `mapstructure:"size_min" yaml:"size_min"`
	DefaultSize float64 `mapstructure:"default_size" yaml:"default_size"`
	WidthIn     float64 `mapstructure:"width_in" yaml:"width_in"`
	HeightIn    float64 `mapstructure:"height_in" yaml:"height_in"`
	DPI         int     `mapstructure:"dpi" yaml:"dpi"`
	Percentile  float64 `mapstructure:"percentile" yaml:"percentile"`
	HeatmapDims int     `mapstructure:"heatmap_dims" yaml:"heatmap_dims"`
}

// Report holds markdown report settings.
type Report struct {
	TopN int `mapstructure:"top_n" yaml:"top_n"`
}

// Associations configures the clustering and significance analysis.
type Associations struct {
	GrowlFile     string   `mapstructure:"growl_file" yaml:"growl_file"`
	OriginFile    string   `mapstructure:"origin_file" yaml:"origin_file"`
	KeepFile      string   `mapstructure:"keep_file" yaml:"keep_file"`
	ProblemsFile  string   `mapstructure:"problems_file" yaml:"problems_file"`
	Clusters      int      `mapstructure:"clusters" yaml:"clusters"`
	Seed          int64    `mapstructure:"seed" yaml:"seed"`
	Alpha         float64  `mapstructure:"alpha" yaml:"alpha"`
	VocalProblems []string `mapstructure:"vocal_problems" yaml:"vocal_problems"`
}

// Keys lists every settable key in dotted form, in file order.
var Keys = []string{
	"input_files", "columns", "output_dir", "components", "id_column", "delimiter",
	"decimal_separator", "sheet_name", "sheet_index", "strict", "timestamped",
	"results_format",
	"plot.size_scale", "plot.size_min", "plot.default_size", "plot.width_in",
	"plot.height_in", "plot.dpi", "plot.percentile", "plot.heatmap_dims",
	"report.top_n",
	"associations.growl_file", "associations.origin_file", "associations.keep_file",
	"associations.problems_file", "associations.clusters", "associations.seed",
	"associations.alpha", "associations.vocal_problems",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input_files", []string{
		"data/raw/keep.csv",
		"data/raw/howl_on_sound.csv",
		"data/raw/grow_to_whom.csv",
		"data/raw/problems.csv",
	})
	v.SetDefault("columns", []string{})
	v.SetDefault("output_dir", "output")
	v.SetDefault("components", 3)
	v.SetDefault("id_column", "ID_full")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)
	v.SetDefault("strict", false)
	v.SetDefault("timestamped", true)
	v.SetDefault("results_format", "json")

	v.SetDefault("plot.size_scale", 1000.0)
	v.SetDefault("plot.size_min", 100.0)
	v.SetDefault("plot.default_size", 500.0)
	v.SetDefault("plot.width_in", 20.0)
	v.SetDefault("plot.height_in", 15.0)
	v.SetDefault("plot.dpi", 150)
	v.SetDefault("plot.percentile", 20.0)
	v.SetDefault("plot.heatmap_dims", 3)

	v.SetDefault("report.top_n", 5)

	v.SetDefault("associations.growl_file", "data/raw/growl_to_whom.csv")
	v.SetDefault("associations.origin_file", "data/raw/origin.csv")
	v.SetDefault("associations.keep_file", "data/raw/keep.csv")
	v.SetDefault("associations.problems_file", "data/raw/problems.csv")
	v.SetDefault("associations.clusters", 4)
	v.SetDefault("associations.seed", 42)
	v.SetDefault("associations.alpha", 0.05)
	v.SetDefault("associations.vocal_problems", []string{
		"problems_He_she_barks_too_much",
		"problems_Aggression_towards_people",
		"problems_Aggression_towards_other_dogs",
	})
}

// DefaultPath returns ~/.dogvoc/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dogvoc", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dogvoc/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.dogvoc/config.yaml) > defaults.
// A .env file in the working directory is read first and never overrides
// variables already set.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DOGVOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".dogvoc"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings no run could use.
func (c *Global) Validate() error {
	switch {
	case c.Components <= 0:
		return fmt.Errorf("config: components must be > 0, got %d", c.Components)
	case c.OutputDir == "":
		return fmt.Errorf("config: output_dir is empty")
	case c.Plot.Percentile < 0 || c.Plot.Percentile > 100:
		return fmt.Errorf("config: plot.percentile must be within [0,100], got %v", c.Plot.Percentile)
	case c.Plot.DPI <= 0:
		return fmt.Errorf("config: plot.dpi must be > 0, got %d", c.Plot.DPI)
	case c.Plot.WidthIn <= 0 || c.Plot.HeightIn <= 0:
		return fmt.Errorf("config: plot size must be positive")
	case c.Associations.Clusters <= 0:
		return fmt.Errorf("config: associations.clusters must be > 0, got %d", c.Associations.Clusters)
	case c.Associations.Alpha <= 0 || c.Associations.Alpha >= 1:
		return fmt.Errorf("config: associations.alpha must be within (0,1), got %v", c.Associations.Alpha)
	}
	switch strings.ToLower(c.ResultsFormat) {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("config: results_format must be json or yaml, got %q", c.ResultsFormat)
	}
	if len([]rune(c.Delimiter)) > 1 {
		return fmt.Errorf("config: delimiter must be a single character, got %q", c.Delimiter)
	}
	return nil
}

// Set assigns a dotted key from its string form, the way `config set` does.
func Set(c *Global, key, value string) error {
	v := viper.New()
	setDefaults(v)
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(string(b))); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	known := false
	for _, k := range Keys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("config: unknown key %q", key)
	}
	if key == "input_files" || key == "columns" || key == "associations.vocal_problems" {
		var list []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		v.Set(key, list)
	} else {
		v.Set(key, value)
	}
	var out Global
	if err := v.Unmarshal(&out); err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*c = out
	return nil
}
