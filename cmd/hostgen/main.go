package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hostgen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "hostgen",
	Short: "Transpilation decision engine",
	Long: `hostgen resolves the module graph of typed source units, infers effects,
chooses ownership transfers and resolves interface methods for the host emitter`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flag, err := cmd.Flags().GetString("color")
		if err != nil {
			return fmt.Errorf("failed to get color flag: %w", err)
		}
		mode, err := parseSwitch("color", flag)
		if err != nil {
			return err
		}
		color.NoColor = !mode.resolve(colorDetect)
		return nil
	},
}

// errFailed signals that the command already reported its errors; main only
// sets the exit status.
var errFailed = errors.New("analysis reported errors")

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("config", "", "path to hostgen.toml or a directory to search from")
	pf.String("mode", "", "execution mode (interactive|batch|aot), overrides [session].mode")
	pf.Int("jobs", 0, "max parallel workers per batch (0=manifest or GOMAXPROCS)")
	pf.Int("fatal-threshold", 0, "stop scheduling units after this many errors, overrides [session].fatal_threshold")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics to keep, overrides [session].max_diagnostics")
	pf.String("snapshot", "", "package metadata snapshot (YAML or TOML), overrides [metadata].snapshot")
	pf.String("tree-dir", "", "directory with unit tree dumps, overrides [modules].tree_dir")

	pf.String("trace", "", "write trace events to file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0=off)")

	pf.String("cpu-profile", "", "write CPU profile to file")
	pf.String("mem-profile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write Go runtime trace to file")
}

func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
