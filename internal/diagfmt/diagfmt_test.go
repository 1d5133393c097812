package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"hostgen/internal/diag"
	"hostgen/internal/source"
)

const sample = "fn main() {\n    let x = fetch()\n}\n"

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("app/main.sg", []byte(sample))
	off := uint32(strings.Index(sample, "fetch")) // #nosec G115 -- tiny fixture
	call := source.Span{File: id, Start: off, End: off + 5}

	d := diag.NewError(diag.EffViolation, call, "run performs async but declares pure").
		WithNote(source.Span{File: id, Start: 3, End: 7}, "declared here").
		WithFixSuggestion(diag.Fix{
			ID:            "await-1",
			Title:         "await the call",
			Kind:          diag.FixKindQuickFix,
			Applicability: diag.FixApplicabilitySafeWithHeuristics,
			IsPreferred:   true,
			Edits:         []diag.TextEdit{{Span: source.Span{File: id, Start: off, End: off}, NewText: "await "}},
		})

	bag := diag.NewBag(10)
	bag.Add(d)
	bag.Add(diag.New(diag.SevInfo, diag.DrvInfo, source.Span{}, "timings").
		WithNote(source.Span{}, `{"kind":"timings"}`))
	return bag, fs
}

func TestPrettyHeaderAndCaret(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, ShowFixes: true, ShowPreview: true, ShowRule: true})
	out := buf.String()

	for _, want := range []string{
		"app/main.sg:2:13: ERROR EFF3201: run performs async but declares pure",
		"2 |     let x = fetch()",
		"  |" + strings.Repeat(" ", 13) + "^~~~~",
		"= rule EFF3201 (Effect violation): a caller may only perform",
		"note: app/main.sg:1:4: declared here",
		"fix #1: await the call [quickfix, heuristic] preferred id=await-1",
		`apply="await " at app/main.sg:2:13`,
		"preview:",
		"-     let x = fetch()",
		"+     let x = await fetch()",
		"INFO DRV6100: timings",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour escapes with Color=false:\n%s", out)
	}
}

func TestPrettyWideRunesKeepCaretAligned(t *testing.T) {
	fs := source.NewFileSet()
	text := "let 名前 = go()\n"
	id := fs.AddVirtual("wide.sg", []byte(text))
	off := uint32(strings.Index(text, "go")) // #nosec G115
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.EffViolation, source.Span{File: id, Start: off, End: off + 2}, "x"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	// "let " = 4 cells, two wide runes = 4 cells, " = " = 3 cells
	if !strings.Contains(buf.String(), "| "+strings.Repeat(" ", 11)+"^~\n") {
		t.Fatalf("caret misaligned:\n%s", buf.String())
	}
}

func TestShort(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Short(&buf, bag, fs, PathModeAuto, "")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if lines[0] != "app/main.sg:2:13: ERROR EFF3201: run performs async but declares pure" {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if lines[1] != "-: INFO DRV6100: timings" {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestJSON(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeFixes: true, IncludePreviews: true})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 2 || out.Errors != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	first := out.Diagnostics[0]
	if first.Code != "EFF3201" || first.Rationale == "" || first.Location.StartLine != 2 || first.Location.StartCol != 13 {
		t.Fatalf("unexpected diagnostic: %+v", first)
	}
	if len(first.Notes) != 0 {
		t.Fatalf("notes must be opt-in, got %+v", first.Notes)
	}
	if len(first.Fixes) != 1 || first.Fixes[0].AfterLines[0] != "    let x = await fetch()" {
		t.Fatalf("unexpected fixes: %+v", first.Fixes)
	}
	// timing notes are always kept
	if len(out.Diagnostics[1].Notes) != 1 {
		t.Fatalf("expected timing note, got %+v", out.Diagnostics[1])
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := sampleBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Code != "EFF3201" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestDisplayPath(t *testing.T) {
	cases := []struct {
		path string
		mode PathMode
		base string
		want string
	}{
		{"app/main.sg", PathModeAuto, "", "app/main.sg"},
		{"/work/app/main.sg", PathModeAuto, "/work", "app/main.sg"},
		{"/other/main.sg", PathModeAuto, "/work", "/other/main.sg"},
		{"/work/app/main.sg", PathModeBasename, "", "main.sg"},
		{"/work/app/main.sg", PathModeRelative, "/work/app", "main.sg"},
	}
	for _, c := range cases {
		if got := displayPath(c.path, c.mode, c.base); got != c.want {
			t.Fatalf("displayPath(%q, %d, %q) = %q, want %q", c.path, c.mode, c.base, got, c.want)
		}
	}
}

func TestPrettyTruncatesToWidth(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Width: 14})
	if out := buf.String(); !strings.Contains(out, "2 |     let x…\n") {
		t.Fatalf("source line not truncated:\n%s", out)
	}
}

func TestParsePathMode(t *testing.T) {
	for _, m := range []PathMode{PathModeAuto, PathModeAbsolute, PathModeRelative, PathModeBasename} {
		got, err := ParsePathMode(strings.ToUpper(m.String()))
		if err != nil || got != m {
			t.Fatalf("ParsePathMode(%s) = %v, %v", m, got, err)
		}
	}
	if _, err := ParsePathMode("short"); err == nil {
		t.Fatalf("expected error")
	}
}
