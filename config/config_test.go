package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notargets/gridgen/partitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "grid-1.eps", cfg.First.File)
	assert.Equal(t, 4, cfg.First.GlobalRefinements)
	assert.Equal(t, [2]float64{1, 0}, cfg.Second.Center)
	assert.Equal(t, 10, cfg.Second.Cells)
	assert.Equal(t, 5, cfg.Second.AdaptiveSteps)
	assert.Equal(t, 1e-10, cfg.Second.Tolerance)
	assert.Equal(t, "grid-4.vtk", cfg.Fourth.File)
	assert.Equal(t, 0.5, cfg.Fourth.Radius)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)
	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, partitions.BlockPartition, s)
	assert.Equal(t, 300.0, cfg.EpsFlags().Size)
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("GRIDGEN_OUTPUT_DIR", "")
	t.Setenv("GRIDGEN_LOG_LEVEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("GRIDGEN_OUTPUT_DIR", "")
	t.Setenv("GRIDGEN_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "sub", "gridgen.yaml")
	cfg := DefaultConfig()
	cfg.Second.AdaptiveSteps = 2
	cfg.Partition = PartitionConfig{Count: 4, Strategy: "sfc"}
	cfg.Eps.ColorBoundary = true
	require.NoError(t, cfg.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartialFile(t *testing.T) {
	t.Setenv("GRIDGEN_OUTPUT_DIR", "")
	t.Setenv("GRIDGEN_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "gridgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("first_grid:\n  global_refinements: 2\nlog_level: debug\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.First.GlobalRefinements)
	assert.Equal(t, "grid-1.eps", cfg.First.File)
	assert.Equal(t, "debug", cfg.LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("first_grid: [\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRIDGEN_OUTPUT_DIR", "/tmp/grids")
	t.Setenv("GRIDGEN_LOG_LEVEL", "warn")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/grids", cfg.OutputDir)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"log level":     func(c *Config) { c.LogLevel = "loud" },
		"output dir":    func(c *Config) { c.OutputDir = "" },
		"file":          func(c *Config) { c.Second.File = "" },
		"square":        func(c *Config) { c.First.Right = c.First.Left },
		"refinements":   func(c *Config) { c.Fourth.GlobalRefinements = -1 },
		"radii":         func(c *Config) { c.Second.InnerRadius = 2 },
		"cells":         func(c *Config) { c.Second.Cells = 2 },
		"tolerance":     func(c *Config) { c.Second.Tolerance = 0 },
		"cylinder":      func(c *Config) { c.Fourth.HalfLength = 0 },
		"eps size":      func(c *Config) { c.Eps.Size = 0 },
		"partitions":    func(c *Config) { c.Partition.Count = -2 },
		"strategy name": func(c *Config) { c.Partition.Strategy = "metis" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
