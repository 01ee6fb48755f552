package main

import (
	"context"
	"fmt"
	"os"

	"github.com/notargets/gridgen/config"
	"github.com/notargets/gridgen/gridin"
	"github.com/notargets/gridgen/gridout"
	"github.com/notargets/gridgen/partitions"
	"github.com/notargets/gridgen/steps"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type step func(context.Context, *config.Config, string, *zap.Logger) (steps.Result, error)

// app carries the flags and the state PersistentPreRunE prepares
type app struct {
	configPath string
	outputDir  string
	verbose    bool
	partitions int
	strategy   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "gridgen",
		Short: "Build, refine and write quad and hex grids",
		Long: `gridgen builds three grids and writes them for visualisation:

  first   the unit square refined globally four times (grid-1.eps)
  second  a shell refined five times towards its inner circle (grid-2.eps)
  fourth  a cylinder refined globally four times (grid-4.vtk)

Run without a subcommand to build all three.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runAll,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultFile, "configuration file")
	pf.StringVarP(&a.outputDir, "output-dir", "o", "", "directory for the written grids (overrides the configuration)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.IntVar(&a.partitions, "partitions", 0, "add subdomain ids for this many partitions")
	pf.StringVar(&a.strategy, "strategy", "", "partition strategy: block, roundrobin, graph or sfc")

	root.AddCommand(
		a.stepCmd("first", "Globally refined unit square", steps.FirstGrid),
		a.stepCmd("second", "Shell refined towards its inner circle", steps.SecondGrid),
		a.stepCmd("fourth", "Globally refined cylinder", steps.FourthGrid),
		&cobra.Command{
			Use:   "all",
			Short: "Build all three grids",
			Args:  cobra.NoArgs,
			RunE:  a.runAll,
		},
		a.convertCmd(),
		configCmd(),
	)
	return root
}

// setup loads the configuration, applies the flags and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir = a.outputDir
	}
	if flags.Changed("partitions") {
		cfg.Partition.Count = a.partitions
	}
	if flags.Changed("strategy") {
		cfg.Partition.Strategy = a.strategy
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) stepCmd(name, short string, run step) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd.Context(), a.cfg, a.cfg.OutputDir, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Grid written to %s\n", res.Path)
			return nil
		},
	}
}

func (a *app) runAll(cmd *cobra.Command, args []string) error {
	_, err := steps.RunAll(cmd.Context(), a.cfg, a.cfg.OutputDir, a.logger, func(res steps.Result) {
		fmt.Fprintf(cmd.OutOrStdout(), "Grid written to %s\n", res.Path)
	})
	return err
}

func (a *app) convertCmd() *cobra.Command {
	var refine int
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Read a mesh, optionally refine it, and write it in another format",
		Long: `convert reads gofem .msh (JSON) files and Gmsh or Gambit hexahedral
meshes and writes .eps, .vtk, .vtu or .msh, chosen by the output extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if refine < 0 {
				return fmt.Errorf("--refine must not be negative, got %d", refine)
			}
			tria, err := gridin.ReadFile(args[0])
			if err != nil {
				return err
			}
			tria.SetLogger(a.logger)
			if err := tria.RefineGlobal(refine); err != nil {
				return err
			}
			opts := gridout.Options{Eps: a.cfg.EpsFlags(), Vtk: gridout.VtkFlags{Title: "converted grid"}}
			if a.cfg.Partition.Count > 1 {
				strategy, err := a.cfg.Strategy()
				if err != nil {
					return err
				}
				pb := &partitions.PartitionBuilder{
					Tria:          tria,
					NumPartitions: a.cfg.Partition.Count,
					Strategy:      strategy,
					Logger:        a.logger,
				}
				layout, err := pb.BuildPartitions()
				if err != nil {
					return err
				}
				opts.Partition = layout.SubdomainIDs()
				opts.Vtk.CellData = map[string][]int{"subdomain": opts.Partition}
			}
			if err := gridout.WriteFile(tria, args[1], opts); err != nil {
				return err
			}
			a.logger.Info("converted mesh",
				zap.String("in", args[0]),
				zap.String("out", args[1]),
				zap.Int("refinements", refine),
				zap.Int("activeCells", tria.NActiveCells()))
			fmt.Fprintf(cmd.OutOrStdout(), "Grid written to %s\n", args[1])
			return nil
		},
	}
	cmd.Flags().IntVar(&refine, "refine", 0, "global refinements before writing")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// the configuration may not exist yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
