package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hostgen/internal/diag"
	"hostgen/internal/diagfmt"
	"hostgen/internal/modules"
	"hostgen/internal/session"
	"hostgen/internal/source"
	"hostgen/internal/tree"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] <import>",
	Short: "Resolve one import path the way an importing unit would",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().String("from", "main", "canonical path of the importing unit")
	resolveCmd.Flags().String("version", "", "version requirement of an external import")
	resolveCmd.Flags().StringSlice("item", nil, "imported items (repeatable)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	req, _ := cmd.Flags().GetString("version")
	items, _ := cmd.Flags().GetStringSlice("item")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Cache.Disk = false
	sc, err := session.FromConfig(cfg)
	if err != nil {
		return err
	}
	snap, err := sc.Fetcher.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	out := cmd.OutOrStdout()
	imp := tree.Import{Path: args[0], Items: items, Version: req}
	res, err := modules.NewResolver(snap, sc.Loader, sc.Resolutions).Resolve(from, imp)
	if err != nil {
		bag := diag.NewBag(1)
		bag.Add(diag.FromError(err, diag.ModInvalidImport, source.Span{}))
		diagfmt.Pretty(out, bag, sc.Files, diagfmt.PrettyOpts{Color: colorOn(), ShowFixes: true})
		return errFailed
	}
	fmt.Fprintln(out, res)

	if res.Kind == modules.KindExternal {
		var reqs []string
		if req != "" {
			reqs = []string{req}
		}
		verdict, err := snap.Reconcile(res.Package, reqs)
		if err != nil {
			fmt.Fprintf(out, "version: %v\n", err)
			return errFailed
		}
		fmt.Fprintf(out, "version: %s\n", verdict.Chosen)
	}
	return nil
}
