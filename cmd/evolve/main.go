// Command evolve is the minimal CLI entry point (spec §6): a single
// target, four flags, one exit-code contract.
//
// Grounded on cmd/nerd/main.go's rootCmd/init/main shape, narrowed from
// that teacher's many subcommands down to the one command spec §6
// names: "evolve <target> [--dry-run] [--auto-apply] [--quick]
// [--hypotheses N]". Exit 0 on run completion regardless of whether any
// change landed; exit non-zero only on fatal configuration or sandbox
// breakage (spec §7 Systemic errors mark a module skipped, they never
// abort the process).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagWorkspace  string
	flagDryRun     bool
	flagAutoApply  bool
	flagQuick      bool
	flagHypotheses int
)

var rootCmd = &cobra.Command{
	Use:   "evolve <target>",
	Short: "Run the thermodynamic evolution pipeline against a target module or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("evolve: resolving target: %w", err)
		}
		ws := flagWorkspace
		if ws == "" {
			ws, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("evolve: resolving workspace: %w", err)
			}
		}
		cfgPath := flagConfig
		if cfgPath == "" {
			cfgPath = filepath.Join(ws, ".evolve", "config.yaml")
		}

		opts := runOptions{
			target:     target,
			configPath: cfgPath,
			workspace:  ws,
			dryRun:     flagDryRun,
			autoApply:  flagAutoApply,
			quick:      flagQuick,
			hypotheses: flagHypotheses,
		}
		return run(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config YAML (default: <workspace>/.evolve/config.yaml)")
	rootCmd.Flags().StringVarP(&flagWorkspace, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "propose and judge improvements without incorporating them")
	rootCmd.Flags().BoolVar(&flagAutoApply, "auto-apply", false, "incorporate ACCEPTed improvements without confirmation")
	rootCmd.Flags().BoolVar(&flagQuick, "quick", false, "trim hypothesis count and LLM timeouts for a fast pass")
	rootCmd.Flags().IntVar(&flagHypotheses, "hypotheses", 0, "override hypotheses considered per module (0: use config default)")
}

// run discovers every module under opts.target and drives the Evolution
// Pipeline and Thermodynamic Cycle over each in turn (spec §5: "within a
// module, experiments are sequential to keep file state deterministic";
// across modules this CLI also runs sequentially, since a shared
// config.Config.CoreLimits.MaxConcurrentExperiments governs a richer
// concurrent scheduler this minimal entry point does not attempt to
// reimplement).
func run(ctx context.Context, opts runOptions) error {
	sys, err := buildSystem(ctx, opts)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	paths, err := discoverModules(opts.target)
	if err != nil {
		return fmt.Errorf("evolve: discovering modules under %s: %w", opts.target, err)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "evolve: no Go source files found under %s\n", opts.target)
		return nil
	}

	var passed, failed, held, skipped, infected, rolledBack int
	for _, path := range paths {
		report, outcomes, err := sys.runOnPath(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "evolve: %s: %v\n", path, err)
			continue
		}
		if report.Skipped {
			skipped++
			fmt.Printf("%s: skipped (%s)\n", moduleName(path), report.SkipReason)
			continue
		}
		for _, exp := range report.Experiments {
			switch exp.Status {
			case "PASSED":
				passed++
			case "FAILED":
				failed++
			case "HELD":
				held++
			}
		}
		for _, o := range outcomes {
			if o.Infected == nil {
				continue
			}
			if o.Infected.Status == "INFECTED" {
				infected++
			} else if o.Infected.Status == "ROLLED_BACK" {
				rolledBack++
			}
		}
		fmt.Printf("%s: %d experiment(s), %d cycle outcome(s)\n", moduleName(path), len(report.Experiments), len(outcomes))
	}

	fmt.Printf("\nsummary: %d module(s) -- experiments: %d passed, %d failed, %d held, %d skipped -- cycles: %d infected, %d rolled back\n",
		len(paths), passed, failed, held, skipped, infected, rolledBack)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
