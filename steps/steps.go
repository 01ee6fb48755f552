// Package steps builds, refines and writes the three example grids.
package steps

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/notargets/gridgen/config"
	"github.com/notargets/gridgen/generator"
	"github.com/notargets/gridgen/grid"
	"github.com/notargets/gridgen/gridout"
	"github.com/notargets/gridgen/manifold"
	"github.com/notargets/gridgen/partitions"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Result summarises a written grid
type Result struct {
	Name        string
	Path        string
	ActiveCells int
	Vertices    int // vertices of the active cells
	Levels      int
}

// FirstGrid refines the square globally and writes it
func FirstGrid(ctx context.Context, cfg *config.Config, outputDir string, logger *zap.Logger) (Result, error) {
	logger = orNop(logger)
	tria, err := buildFirstGrid(ctx, cfg, logger)
	if err != nil {
		return Result{}, fmt.Errorf("first grid: %w", err)
	}
	return writeGrid(tria, "first", filepath.Join(outputDir, cfg.First.File), cfg, logger)
}

func buildFirstGrid(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*grid.Triangulation, error) {
	tria, err := newTriangulation(2, logger)
	if err != nil {
		return nil, err
	}
	if err := generator.HyperCube(tria, cfg.First.Left, cfg.First.Right, false); err != nil {
		return nil, err
	}
	for i := 0; i < cfg.First.GlobalRefinements; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := tria.RefineGlobal(1); err != nil {
			return nil, err
		}
	}
	return tria, nil
}

// SecondGrid refines the shell towards its inner circle and writes it
func SecondGrid(ctx context.Context, cfg *config.Config, outputDir string, logger *zap.Logger) (Result, error) {
	logger = orNop(logger)
	tria, err := buildSecondGrid(ctx, cfg, logger)
	if err != nil {
		return Result{}, fmt.Errorf("second grid: %w", err)
	}
	defer tria.ResetManifold(0)
	return writeGrid(tria, "second", filepath.Join(outputDir, cfg.Second.File), cfg, logger)
}

func buildSecondGrid(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*grid.Triangulation, error) {
	s := cfg.Second
	center := r3.Vec{X: s.Center[0], Y: s.Center[1]}
	tria, err := newTriangulation(2, logger)
	if err != nil {
		return nil, err
	}
	if err := generator.HyperShell(tria, center, s.InnerRadius, s.OuterRadius, s.Cells, false); err != nil {
		return nil, err
	}
	if err := tria.SetManifold(0, manifold.NewSpherical(center)); err != nil {
		return nil, err
	}
	tria.SetAllManifoldIDs(0)

	for step := 0; step < s.AdaptiveSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		flagged := 0
		for _, c := range tria.ActiveCells() {
			for v := range c.Vertices {
				dist := r3.Norm(r3.Sub(c.Vertex(v), center))
				if math.Abs(dist-s.InnerRadius) < s.Tolerance {
					c.SetRefineFlag()
					flagged++
					break
				}
			}
		}
		if err := tria.ExecuteCoarseningAndRefinement(); err != nil {
			return nil, fmt.Errorf("adaptive step %d: %w", step+1, err)
		}
		logger.Debug("adaptive step",
			zap.Int("step", step+1),
			zap.Int("flagged", flagged),
			zap.Int("activeCells", tria.NActiveCells()))
	}
	return tria, nil
}

// FourthGrid refines the cylinder globally and writes it
func FourthGrid(ctx context.Context, cfg *config.Config, outputDir string, logger *zap.Logger) (Result, error) {
	logger = orNop(logger)
	tria, err := buildFourthGrid(ctx, cfg, logger)
	if err != nil {
		return Result{}, fmt.Errorf("fourth grid: %w", err)
	}
	defer tria.ResetManifold(0)
	return writeGrid(tria, "fourth", filepath.Join(outputDir, cfg.Fourth.File), cfg, logger)
}

func buildFourthGrid(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*grid.Triangulation, error) {
	f := cfg.Fourth
	tria, err := newTriangulation(3, logger)
	if err != nil {
		return nil, err
	}
	if err := generator.Cylinder(tria, f.Radius, f.HalfLength); err != nil {
		return nil, err
	}
	axis, err := manifold.NewCylindricalAxis(0)
	if err != nil {
		return nil, err
	}
	if err := tria.SetManifold(generator.HullManifoldID, axis); err != nil {
		return nil, err
	}
	for i := 0; i < f.GlobalRefinements; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := tria.RefineGlobal(1); err != nil {
			return nil, err
		}
	}
	return tria, nil
}

// RunAll builds the three grids concurrently. The results come back in the
// order first, second, fourth; the first failure cancels the others. When
// report is not nil it sees each result in that order as soon as the grid and
// those before it are written, so it still runs for grids finished before a
// failure.
func RunAll(ctx context.Context, cfg *config.Config, outputDir string, logger *zap.Logger,
	report func(Result)) ([]Result, error) {
	logger = orNop(logger)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	procedures := []func(context.Context, *config.Config, string, *zap.Logger) (Result, error){
		FirstGrid, SecondGrid, FourthGrid,
	}
	var (
		results = make([]Result, len(procedures))
		done    = make([]bool, len(procedures))
		mu      sync.Mutex
		next    int
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, run := range procedures {
		i, run := i, run
		g.Go(func() error {
			res, err := run(gctx, cfg, outputDir, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			results[i], done[i] = res, true
			for ; next < len(done) && done[next]; next++ {
				if report != nil {
					report(results[next])
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func newTriangulation(dim int, logger *zap.Logger) (*grid.Triangulation, error) {
	tria, err := grid.NewTriangulation(dim)
	if err != nil {
		return nil, err
	}
	tria.SetLogger(logger)
	return tria, nil
}

// subdomains partitions the active cells when the configuration asks for
// more than one partition, nil otherwise
func subdomains(tria *grid.Triangulation, cfg *config.Config, logger *zap.Logger) ([]int, error) {
	if cfg.Partition.Count <= 1 {
		return nil, nil
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	pb := &partitions.PartitionBuilder{
		Tria:          tria,
		NumPartitions: cfg.Partition.Count,
		Strategy:      strategy,
		Logger:        logger,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, err
	}
	metrics, err := partitions.ComputeMetrics(layout, partitions.NewMeshConnectivity(tria))
	if err != nil {
		return nil, err
	}
	for _, m := range metrics {
		logger.Debug("partition",
			zap.Int("id", m.ID),
			zap.Int("interfaceFaces", m.InterfaceFaces),
			zap.Ints("neighbors", m.Neighbors))
	}
	return layout.SubdomainIDs(), nil
}

func writeGrid(tria *grid.Triangulation, name, path string, cfg *config.Config, logger *zap.Logger) (Result, error) {
	opts := gridout.Options{
		Eps: cfg.EpsFlags(),
		Vtk: gridout.VtkFlags{Title: name + " grid", BoundaryFaces: cfg.Fourth.BoundaryFaces && tria.Dim() == 3},
	}
	ids, err := subdomains(tria, cfg, logger)
	if err != nil {
		return Result{}, fmt.Errorf("%s grid: %w", name, err)
	}
	if ids != nil {
		opts.Vtk.CellData = map[string][]int{"subdomain": ids}
		opts.Partition = ids
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Result{}, fmt.Errorf("%s grid: %w", name, err)
	}
	if err := gridout.WriteFile(tria, path, opts); err != nil {
		return Result{}, fmt.Errorf("%s grid: %w", name, err)
	}
	res := Result{
		Name:        name,
		Path:        path,
		ActiveCells: tria.NActiveCells(),
		Vertices:    tria.NUsedVertices(),
		Levels:      tria.NLevels(),
	}
	logger.Info("grid written",
		zap.String("grid", name),
		zap.String("path", path),
		zap.Int("activeCells", res.ActiveCells),
		zap.Int("vertices", res.Vertices),
		zap.Int("levels", res.Levels))
	return res, nil
}
