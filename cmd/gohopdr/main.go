// Command gohopdr is the CLI driver: a single "check" subcommand that
// loads a problem file, builds configuration from YAML plus flag
// overrides, runs the PDR engine, and reports the verdict — following
// cmd/ailang/main.go's flag-dispatch shape, adapted to spf13/cobra
// (already present in the resolved dependency graph) instead of the
// bare flag package, since a multi-flag subcommand driver is exactly
// cobra's niche.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hopv/gohopdr/internal/config"
	"github.com/hopv/gohopdr/internal/diag"
	"github.com/hopv/gohopdr/internal/pdr"
	"github.com/hopv/gohopdr/internal/solver"
)

var (
	Version = "dev"

	red  = color.New(color.FgRed).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gohopdr",
		Short:         bold("gohopdr") + " — a validity checker for the ν-fragment of higher-order fixpoint logic over integers",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newCheckCmd())
	return root
}

func newCheckCmd() *cobra.Command {
	var (
		configPath   string
		dumpProgress bool
		maxLevels    int
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check <problem-file>",
		Short: "check a problem file for validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if dumpProgress {
				cfg.DumpProgress = true
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading problem file %s: %w", args[0], err)
			}
			p, err := Load(string(src))
			if err != nil {
				return err
			}

			logger := diag.New(cmd.OutOrStdout(), cfg.DumpProgress)
			chcSolver := solver.New(cfg.CHCSolverKind, cfg.SolverPaths, 0)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			engine := pdr.New(p, pdr.Options{
				CHCSolver: chcSolver,
				MaxLevels: maxLevels,
				Trace:     logger.Tracef,
			})
			result := engine.Run(ctx)
			logger.Verdict(result.Verdict, result.Reason)
			if result.Verdict == pdr.Invalid {
				return fmt.Errorf("invalid")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().BoolVar(&dumpProgress, "dump-progress", false, "enable the logger's derivation dump (overrides config); the check pipeline passes no derivation to it")
	cmd.Flags().IntVar(&maxLevels, "max-levels", 64, "maximum HoPDR environment-stack depth before giving up with Unknown")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall wall-clock budget for the run")
	return cmd
}
