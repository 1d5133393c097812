package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"hostgen/internal/driver"
	"hostgen/internal/modules"
	"hostgen/internal/observ"
)

func colorOn() bool {
	return !color.NoColor
}

func printManifest(out io.Writer, entries []modules.ManifestEntry) {
	fmt.Fprintln(out, "manifest:")
	if len(entries) == 0 {
		fmt.Fprintln(out, "  (no external packages)")
		return
	}
	for _, e := range entries {
		v := e.Version
		if v == "" {
			v = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", e.Package, v)
	}
}

func printPhaseTimings(out io.Writer, report observ.Report) {
	fmt.Fprintln(out, "timings:")
	report.Write(out)
}

// printDecisions lists what the emitter will do for every analysed unit.
func printDecisions(out io.Writer, res *driver.Result) {
	bold := color.New(color.Bold)
	for _, u := range res.Units {
		fmt.Fprintf(out, "%s %s (%s)\n", bold.Sprint("unit"), u.Unit, u.Digest.Short(12))
		for _, sig := range u.Signatures {
			fmt.Fprintf(out, "  sig %s\n", sig)
		}
		for _, fn := range u.Funcs {
			fmt.Fprintf(out, "  fn %s\n", fn.Name)
			for _, m := range fn.Methods {
				deref := ""
				if m.DerefDepth > 0 {
					deref = fmt.Sprintf(" deref=%d", m.DerefDepth)
				}
				fmt.Fprintf(out, "    #%d method via %s%s\n", m.Expr, m.Interface, deref)
			}
			for _, b := range fn.Bindings {
				uses := make([]string, 0, len(b.Uses))
				for _, use := range b.Uses {
					uses = append(uses, fmt.Sprintf("#%d %s=%s", use.Expr, use.Kind, use.Strategy))
				}
				fmt.Fprintf(out, "    let %s [%s] %s\n", b.Name, b.Pattern, strings.Join(uses, ", "))
			}
		}
		for _, line := range u.Imports {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "%s %s (skipped)\n", bold.Sprint("unit"), s)
	}
}
