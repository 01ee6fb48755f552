package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/gridgen/config"
	"github.com/notargets/gridgen/generator"
	"github.com/notargets/gridgen/grid"
	"github.com/notargets/gridgen/gridin"
	"github.com/notargets/gridgen/gridout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command line with a small configuration in dir
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(dir, "gridgen.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		cfg.OutputDir = filepath.Join(dir, "out")
		cfg.LogLevel = "error"
		cfg.Second.AdaptiveSteps = 2
		cfg.Fourth.GlobalRefinements = 1
		require.NoError(t, cfg.Save(cfgPath))
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRunsAllGrids(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, dir)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "out")
	want := "Grid written to " + filepath.Join(outDir, "grid-1.eps") + "\n" +
		"Grid written to " + filepath.Join(outDir, "grid-2.eps") + "\n" +
		"Grid written to " + filepath.Join(outDir, "grid-4.vtk") + "\n"
	assert.Equal(t, want, out)
	for _, name := range []string{"grid-1.eps", "grid-2.eps", "grid-4.vtk"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestSingleStep(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "elsewhere")
	out, err := execute(t, dir, "fourth", "--output-dir", other)
	require.NoError(t, err)
	assert.Equal(t, "Grid written to "+filepath.Join(other, "grid-4.vtk")+"\n", out)
	assert.NoFileExists(t, filepath.Join(dir, "out", "grid-1.eps"))
}

func TestPartitionFlags(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "first", "--partitions", "4", "--strategy", "sfc")
	require.NoError(t, err)

	_, err = execute(t, dir, "first", "--partitions", "4", "--strategy", "metis")
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "first")
	require.NoError(t, err)

	msh := filepath.Join(dir, "square.msh")
	out, err := execute(t, dir, "convert", filepath.Join(dir, "out", "grid-1.eps"), msh)
	assert.Error(t, err, "eps is not an input format")
	assert.NotContains(t, out, "Grid written")

	// build a mesh file, then refine it through convert
	coarse := filepath.Join(dir, "coarse.msh")
	tria, err := grid.NewTriangulation(2)
	require.NoError(t, err)
	require.NoError(t, generator.HyperCube(tria, 0, 1, false))
	require.NoError(t, gridout.WriteFile(tria, coarse, gridout.DefaultOptions()))

	out, err = execute(t, dir, "convert", coarse, msh, "--refine", "2")
	require.NoError(t, err)
	assert.Equal(t, "Grid written to "+msh+"\n", out)

	back, err := gridin.ReadFile(msh)
	require.NoError(t, err)
	assert.Equal(t, 16, back.NActiveCells())
	assert.Equal(t, 25, back.NVertices())

	_, err = execute(t, dir, "convert", coarse, msh, "--refine", "-1")
	assert.Error(t, err)
	_, err = execute(t, dir, "convert", coarse)
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "gridgen.yaml")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "broken.yaml"), "config", "init", path})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("log_level: [\n"), 0644))
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Configuration written to "))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().First, cfg.First)

	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", path})
	assert.Error(t, cmd.Execute(), "refuses to overwrite")

	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--force", path})
	assert.NoError(t, cmd.Execute())
}

func TestInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gridgen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: loud\n"), 0644))
	_, err := execute(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
