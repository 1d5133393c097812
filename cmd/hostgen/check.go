package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hostgen/internal/diag"
	"hostgen/internal/diagfmt"
	"hostgen/internal/driver"
	"hostgen/internal/modules"
	"hostgen/internal/observ"
	"hostgen/internal/session"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [unit...]",
	Short: "Analyse units and report effect, ownership and interface decisions",
	Long: `Resolve the module graph from the given root units (or [modules].roots),
reconcile package versions and run effect inference, ownership-transfer
analysis and interface resolution on every unit in dependency order`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	checkCmd.Flags().String("ui", "off", "live progress view (auto|on|off)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("preview", false, "preview fix edits and refused renderings")
	checkCmd.Flags().Bool("rules", false, "print the rationale of each violated rule")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output (same as --paths absolute)")
	checkCmd.Flags().String("paths", "auto", "how to print file paths (auto|absolute|relative|basename)")
	checkCmd.Flags().Bool("disk-cache", false, "enable the persistent result cache, overrides [cache].disk")
	checkCmd.Flags().Bool("decisions", false, "print per-unit effect, method and transfer decisions")
	checkCmd.Flags().Bool("manifest", false, "print the build-manifest delta")
	checkCmd.Flags().String("min-severity", "info", "hide diagnostics below this severity (info|warning|error)")
}

type checkOptions struct {
	format    string
	ui        switchMode
	notes     bool
	fixes     bool
	preview   bool
	rules     bool
	pathMode  diagfmt.PathMode
	decisions bool
	manifest  bool
	minSev    diag.Severity
	timings   bool
	quiet     bool
}

func readCheckOptions(cmd *cobra.Command) (checkOptions, error) {
	flags := cmd.Flags()
	var opts checkOptions
	var err error
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch opts.format {
	case "pretty", "json", "short":
	default:
		return opts, fmt.Errorf("unknown format: %s", opts.format)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = parseSwitch("ui", uiFlag); err != nil {
		return opts, err
	}
	opts.notes, _ = flags.GetBool("with-notes")
	suggest, _ := flags.GetBool("suggest")
	opts.preview, _ = flags.GetBool("preview")
	opts.fixes = suggest || opts.preview
	opts.rules, _ = flags.GetBool("rules")
	pathsFlag, err := flags.GetString("paths")
	if err != nil {
		return opts, fmt.Errorf("failed to get paths flag: %w", err)
	}
	if opts.pathMode, err = diagfmt.ParsePathMode(pathsFlag); err != nil {
		return opts, err
	}
	if full, _ := flags.GetBool("fullpath"); full {
		opts.pathMode = diagfmt.PathModeAbsolute
	}
	opts.decisions, _ = flags.GetBool("decisions")
	opts.manifest, _ = flags.GetBool("manifest")
	sevFlag, err := flags.GetString("min-severity")
	if err != nil {
		return opts, fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	if opts.minSev, err = diag.ParseSeverity(sevFlag); err != nil {
		return opts, err
	}
	opts.timings, _ = flags.GetBool("timings")
	opts.quiet, _ = flags.GetBool("quiet")
	return opts, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	opts, err := readCheckOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("disk-cache") {
		cfg.Cache.Disk, _ = cmd.Flags().GetBool("disk-cache")
	}
	roots, err := rootsFor(cfg, args)
	if err != nil {
		return err
	}

	cleanup, err := instrument(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sc, err := session.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cache: %v\n", err)
		}
	}()

	req := driver.Request{Roots: roots, Timings: opts.timings && opts.format == "json"}
	var res *driver.Result
	if opts.format != "json" && opts.ui.resolve(tuiDetect) {
		res, err = runWithUI(cmd.Context(), "hostgen check", sc, req)
	} else {
		res, err = driver.Run(cmd.Context(), sc, req)
	}
	if res == nil {
		return err
	}

	failed := err != nil || res.Diagnostics.HasErrors()
	if opts.minSev > diag.SevInfo {
		res.Diagnostics.Filter(diag.AtLeast(opts.minSev))
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		if encErr := writeCheckJSON(out, res, sc, opts, cfg.Root); encErr != nil {
			return encErr
		}
	} else {
		writeCheckText(out, res, sc, opts, cfg.Root)
	}

	if failed {
		return errFailed
	}
	return nil
}

func writeCheckText(out io.Writer, res *driver.Result, sc *session.Context, opts checkOptions, base string) {
	switch opts.format {
	case "short":
		diagfmt.Short(out, res.Diagnostics, sc.Files, opts.pathMode, base)
	default:
		diagfmt.Pretty(out, res.Diagnostics, sc.Files, diagfmt.PrettyOpts{
			Color:       colorOn(),
			Context:     1,
			Width:       terminalWidth(os.Stdout),
			PathMode:    opts.pathMode,
			BaseDir:     base,
			ShowNotes:   opts.notes,
			ShowFixes:   opts.fixes,
			ShowPreview: opts.preview,
			ShowRule:    opts.rules,
		})
	}
	if opts.decisions {
		printDecisions(out, res)
	}
	if opts.manifest {
		printManifest(out, res.Manifest)
	}
	if opts.timings {
		printPhaseTimings(os.Stderr, res.Timings)
		fmt.Fprintf(os.Stderr, "metrics: %s\n", res.Metrics)
	}
	if !opts.quiet && opts.format == "pretty" {
		fmt.Fprintf(os.Stderr, "%d units, %d errors\n", len(res.Units), res.Diagnostics.ErrorCount())
	}
}

type checkPayload struct {
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
	Batches     [][]string                `json:"batches,omitempty"`
	Skipped     []string                  `json:"skipped,omitempty"`
	Manifest    []modules.ManifestEntry   `json:"manifest,omitempty"`
	Metrics     *driver.Metrics           `json:"metrics,omitempty"`
	Timings     *observ.Report            `json:"timings,omitempty"`
}

func writeCheckJSON(out io.Writer, res *driver.Result, sc *session.Context, opts checkOptions, base string) error {
	payload := checkPayload{
		Diagnostics: diagfmt.BuildDiagnosticsOutput(res.Diagnostics, sc.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			BaseDir:          base,
			IncludeNotes:     opts.notes,
			IncludeFixes:     opts.fixes,
			IncludePreviews:  opts.preview,
		}),
		Batches: res.Batches,
		Skipped: res.Skipped,
	}
	if opts.manifest {
		payload.Manifest = res.Manifest
	}
	if opts.timings {
		payload.Metrics = &res.Metrics
		payload.Timings = &res.Timings
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to format diagnostics: %w", err)
	}
	return nil
}
