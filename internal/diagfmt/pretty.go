package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"hostgen/internal/diag"
	"hostgen/internal/source"
)

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color       bool
	Context     int8 // строк контекста вокруг первичного спана
	PathMode    PathMode
	BaseDir     string
	Width       int // ширина терминала, 0 - без ограничения
	ShowNotes   bool
	ShowFixes   bool
	ShowPreview bool // fix previews and the refused rendering
	ShowRule    bool
}

type palette struct {
	err, warn, info, code, gutter, caret, note, add, del *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		code:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed),
		note:   color.New(color.FgCyan),
		add:    color.New(color.FgGreen),
		del:    color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.gutter, p.caret, p.note, p.add, p.del} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes, Fixes
// и рендеринг до/после.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, pal)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	header := pal.severity(d.Severity).Sprint(d.Severity.String()) + " " + pal.code.Sprint(d.Code.ID())
	if loc := location(fs, d.Primary, opts.PathMode, opts.BaseDir); loc != "" {
		fmt.Fprintf(w, "%s: %s: %s\n", loc, header, d.Message)
	} else {
		fmt.Fprintf(w, "%s: %s\n", header, d.Message)
	}
	snippet(w, fs, d.Primary, opts, pal)

	if opts.ShowRule && d.Rationale() != "" {
		fmt.Fprintf(w, "  = rule %s (%s): %s\n", d.Rule(), d.Code.Title(), d.Rationale())
	}
	if opts.ShowNotes {
		for _, n := range d.Notes {
			if loc := location(fs, n.Span, opts.PathMode, opts.BaseDir); loc != "" {
				fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note:"), loc, n.Msg)
			} else {
				fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), n.Msg)
			}
		}
	}
	if opts.ShowFixes {
		for i, f := range d.Fixes {
			fmt.Fprintf(w, "  fix #%d: %s [%s, %s]", i+1, f.Title, f.Kind, f.Applicability)
			if f.IsPreferred {
				w.Write([]byte(" preferred")) //nolint:errcheck
			}
			if f.ID != "" {
				fmt.Fprintf(w, " id=%s", f.ID)
			}
			fmt.Fprintln(w)
			for _, e := range f.Edits {
				fmt.Fprintf(w, "      apply=%s", strconv.Quote(e.NewText))
				if loc := location(fs, e.Span, opts.PathMode, opts.BaseDir); loc != "" {
					fmt.Fprintf(w, " at %s", loc)
				}
				fmt.Fprintln(w)
			}
			if opts.ShowPreview && len(f.Edits) > 0 {
				if pv, err := buildFixPreview(fs, f); err == nil {
					fmt.Fprintln(w, "    preview:")
					diffLines(w, pv.before, pv.after, pal)
				}
			}
		}
	}
	if d.Rendering != nil && (opts.ShowFixes || opts.ShowPreview) {
		fmt.Fprintln(w, "    rendering:")
		diffLines(w, splitPreviewLines(d.Rendering.Before), splitPreviewLines(d.Rendering.After), pal)
	}
}

func diffLines(w io.Writer, before, after []string, pal palette) {
	for _, l := range before {
		fmt.Fprintf(w, "      %s\n", pal.del.Sprint("- "+l))
	}
	for _, l := range after {
		fmt.Fprintf(w, "      %s\n", pal.add.Sprint("+ "+l))
	}
}

func location(fs *source.FileSet, span source.Span, mode PathMode, base string) string {
	if fs == nil {
		return ""
	}
	f := fs.Get(span.File)
	if f == nil {
		return ""
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", displayPath(f.Path, mode, base), start.Line, start.Col)
}

// snippet prints the primary line with context and a caret line under the
// span. Columns are counted in display cells, so wide runes keep the caret
// aligned.
func snippet(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts, pal palette) {
	if fs == nil {
		return
	}
	f := fs.Get(span.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(span)
	if start.Line == 0 {
		return
	}
	ctx := uint32(max(opts.Context, 0))
	first := start.Line - min(ctx, start.Line-1)
	last := start.Line + ctx
	gutterWidth := len(strconv.FormatUint(uint64(last), 10))
	blank := pal.gutter.Sprint(strings.Repeat(" ", gutterWidth) + " |")

	fmt.Fprintln(w, blank)
	for ln := first; ln <= last; ln++ {
		text := expandTabs(f.Line(ln))
		if ln > start.Line && text == "" {
			break
		}
		// the gutter takes gutterWidth+3 columns
		if avail := opts.Width - gutterWidth - 3; opts.Width > 0 && avail > 0 {
			text = runewidth.Truncate(text, avail, "…")
		}
		gutter := pal.gutter.Sprint(fmt.Sprintf("%*d |", gutterWidth, ln))
		fmt.Fprintf(w, "%s %s\n", gutter, text)
		if ln != start.Line {
			continue
		}
		line := f.Line(ln)
		col := int(start.Col) - 1
		col = min(max(col, 0), len(line))
		stop := len(line)
		if end.Line == start.Line {
			stop = min(max(int(end.Col)-1, col), len(line))
		}
		pad := runewidth.StringWidth(expandTabs(line[:col]))
		width := max(runewidth.StringWidth(expandTabs(line[col:stop])), 1)
		marker := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, "%s %s%s\n", blank, strings.Repeat(" ", pad), pal.caret.Sprint(marker))
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
