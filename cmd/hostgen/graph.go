package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hostgen/internal/diag"
	"hostgen/internal/diagfmt"
	"hostgen/internal/modules"
	"hostgen/internal/session"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flags] [unit...]",
	Short: "Print the unit graph, its dependency batches and any cycle",
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().String("format", "text", "output format (text|json)")
}

type graphImport struct {
	Path       string `json:"path"`
	Resolution string `json:"resolution,omitempty"`
	Error      string `json:"error,omitempty"`
}

type graphUnit struct {
	Path    string        `json:"path"`
	Deps    []string      `json:"deps,omitempty"`
	Imports []graphImport `json:"imports,omitempty"`
}

type graphPayload struct {
	Units   []graphUnit `json:"units"`
	Batches [][]string  `json:"batches,omitempty"`
	Cycle   []string    `json:"cycle,omitempty"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
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

	cfg.Cache.Disk = false
	sc, err := session.FromConfig(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	snap, err := sc.Fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	resolver := modules.NewResolver(snap, sc.Loader, sc.Resolutions)
	g, crawlErr := resolver.Crawl(ctx, roots, modules.CrawlOptions{Files: sc.Files, Types: sc.Types})

	var cyc *modules.CircularDependencyError
	if crawlErr != nil && !errors.As(crawlErr, &cyc) {
		return crawlErr
	}

	var payload graphPayload
	if cyc != nil {
		payload.Cycle = cyc.Path
	} else {
		payload = buildGraphPayload(g)
		if payload.Batches, err = g.Order(); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else {
		printGraph(out, payload)
		if cyc != nil {
			bag := diag.NewBag(1)
			bag.Add(cyc.Diagnostic())
			diagfmt.Pretty(out, bag, sc.Files, diagfmt.PrettyOpts{Color: colorOn(), ShowFixes: true, BaseDir: cfg.Root})
		}
	}
	if cyc != nil {
		return errFailed
	}
	return nil
}

func buildGraphPayload(g *modules.Graph) graphPayload {
	var p graphPayload
	for _, u := range g.Units {
		gu := graphUnit{Path: u.Path, Deps: g.Deps(u.Path)}
		for _, ir := range g.Imports[u.Path] {
			gi := graphImport{Path: ir.Import.Path}
			if ir.Err != nil {
				gi.Error = ir.Err.Error()
			} else {
				gi.Resolution = ir.Resolution.String()
			}
			gu.Imports = append(gu.Imports, gi)
		}
		p.Units = append(p.Units, gu)
	}
	return p
}

func printGraph(out io.Writer, p graphPayload) {
	if len(p.Cycle) > 0 {
		fmt.Fprintf(out, "cycle: %s\n", strings.Join(p.Cycle, " -> "))
		return
	}
	fmt.Fprintln(out, "units:")
	for _, u := range p.Units {
		fmt.Fprintf(out, "  %s\n", u.Path)
		for _, imp := range u.Imports {
			if imp.Error != "" {
				fmt.Fprintf(out, "    %s !! %s\n", imp.Path, imp.Error)
				continue
			}
			fmt.Fprintf(out, "    %s => %s\n", imp.Path, imp.Resolution)
		}
	}
	fmt.Fprintln(out, "batches:")
	for i, b := range p.Batches {
		fmt.Fprintf(out, "  %d: %s\n", i, strings.Join(b, ", "))
	}
}
