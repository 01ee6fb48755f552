// Package config holds the settings of the grid generation runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/notargets/gridgen/gridout"
	"github.com/notargets/gridgen/partitions"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given
const DefaultFile = "gridgen.yaml"

// Config is the complete gridgen configuration
type Config struct {
	OutputDir string `yaml:"output_dir"`
	LogLevel  string `yaml:"log_level"` // debug, info, warn or error

	First  FirstGridConfig  `yaml:"first_grid"`
	Second SecondGridConfig `yaml:"second_grid"`
	Fourth FourthGridConfig `yaml:"fourth_grid"`

	Eps       EpsConfig       `yaml:"eps"`
	Partition PartitionConfig `yaml:"partition"`
}

// FirstGridConfig is the globally refined square
type FirstGridConfig struct {
	File              string  `yaml:"file"`
	Left              float64 `yaml:"left"`
	Right             float64 `yaml:"right"`
	GlobalRefinements int     `yaml:"global_refinements"`
}

// SecondGridConfig is the shell refined towards its inner circle
type SecondGridConfig struct {
	File          string     `yaml:"file"`
	Center        [2]float64 `yaml:"center,flow"`
	InnerRadius   float64    `yaml:"inner_radius"`
	OuterRadius   float64    `yaml:"outer_radius"`
	Cells         int        `yaml:"cells"`
	AdaptiveSteps int        `yaml:"adaptive_steps"`
	Tolerance     float64    `yaml:"tolerance"` // distance from the inner circle counted as on it
}

// FourthGridConfig is the globally refined cylinder
type FourthGridConfig struct {
	File              string  `yaml:"file"`
	Radius            float64 `yaml:"radius"`
	HalfLength        float64 `yaml:"half_length"`
	GlobalRefinements int     `yaml:"global_refinements"`
	BoundaryFaces     bool    `yaml:"boundary_faces"`
}

type EpsConfig struct {
	Size          float64 `yaml:"size"`
	LineWidth     float64 `yaml:"line_width"`
	ColorBoundary bool    `yaml:"color_boundary"`
	CellNumbers   bool    `yaml:"cell_numbers"`
	Azimuth       float64 `yaml:"azimuth"`
	Turn          float64 `yaml:"turn"`
}

// PartitionConfig adds subdomain ids to the outputs when Count > 1
type PartitionConfig struct {
	Count    int    `yaml:"count"`
	Strategy string `yaml:"strategy"`
}

// DefaultConfig returns the settings of the three classic grids
func DefaultConfig() *Config {
	eps := gridout.DefaultEpsFlags()
	return &Config{
		OutputDir: ".",
		LogLevel:  "info",
		First: FirstGridConfig{
			File:              "grid-1.eps",
			Left:              0,
			Right:             1,
			GlobalRefinements: 4,
		},
		Second: SecondGridConfig{
			File:          "grid-2.eps",
			Center:        [2]float64{1, 0},
			InnerRadius:   0.5,
			OuterRadius:   1.0,
			Cells:         10,
			AdaptiveSteps: 5,
			Tolerance:     1e-10,
		},
		Fourth: FourthGridConfig{
			File:              "grid-4.vtk",
			Radius:            0.5,
			HalfLength:        1.0,
			GlobalRefinements: 4,
		},
		Eps: EpsConfig{
			Size:      eps.Size,
			LineWidth: eps.LineWidth,
			Azimuth:   eps.Azimuth,
			Turn:      eps.Turn,
		},
		Partition: PartitionConfig{Count: 0, Strategy: partitions.BlockPartition.String()},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// yields the defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("GRIDGEN_OUTPUT_DIR"); dir != "" {
		c.OutputDir = dir
	}
	if level := os.Getenv("GRIDGEN_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// Level parses LogLevel
func (c *Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(strings.ToLower(c.LogLevel))
}

// Strategy parses Partition.Strategy
func (c *Config) Strategy() (partitions.PartitionStrategy, error) {
	return partitions.ParseStrategy(c.Partition.Strategy)
}

// EpsFlags converts the EPS section for the writer
func (c *Config) EpsFlags() gridout.EpsFlags {
	return gridout.EpsFlags{
		Size:          c.Eps.Size,
		LineWidth:     c.Eps.LineWidth,
		ColorBoundary: c.Eps.ColorBoundary,
		CellNumbers:   c.Eps.CellNumbers,
		Azimuth:       c.Eps.Azimuth,
		Turn:          c.Eps.Turn,
	}
}

// Validate checks the configuration before any grid is built
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory not configured")
	}
	for name, file := range map[string]string{
		"first_grid":  c.First.File,
		"second_grid": c.Second.File,
		"fourth_grid": c.Fourth.File,
	} {
		if file == "" {
			return fmt.Errorf("%s: output file not configured", name)
		}
	}
	if c.First.Left >= c.First.Right {
		return fmt.Errorf("first_grid: left %g must be below right %g", c.First.Left, c.First.Right)
	}
	if c.First.GlobalRefinements < 0 || c.Fourth.GlobalRefinements < 0 || c.Second.AdaptiveSteps < 0 {
		return fmt.Errorf("refinement counts must not be negative")
	}
	s := c.Second
	if s.InnerRadius <= 0 || s.OuterRadius <= s.InnerRadius {
		return fmt.Errorf("second_grid: need 0 < inner_radius < outer_radius, got %g and %g", s.InnerRadius, s.OuterRadius)
	}
	if s.Cells != 0 && s.Cells < 3 {
		return fmt.Errorf("second_grid: need 0 or at least 3 cells, got %d", s.Cells)
	}
	if s.Tolerance <= 0 {
		return fmt.Errorf("second_grid: tolerance %g must be positive", s.Tolerance)
	}
	if c.Fourth.Radius <= 0 || c.Fourth.HalfLength <= 0 {
		return fmt.Errorf("fourth_grid: radius %g and half_length %g must be positive", c.Fourth.Radius, c.Fourth.HalfLength)
	}
	if c.Eps.Size <= 0 {
		return fmt.Errorf("eps: size %g must be positive", c.Eps.Size)
	}
	if c.Partition.Count < 0 {
		return fmt.Errorf("partition: count %d must not be negative", c.Partition.Count)
	}
	if _, err := c.Strategy(); err != nil {
		return fmt.Errorf("partition: %w", err)
	}
	return nil
}
