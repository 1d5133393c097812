package fix

import (
	"errors"
	"testing"

	"hostgen/internal/diag"
	"hostgen/internal/source"
)

func TestSetNumbersFixesAndAppliesOptions(t *testing.T) {
	site := source.Span{File: 1, Start: 4, End: 9}
	set := For(diag.OwnUseAfterMove, site).
		Insert("comment out", site, "// ",
			Preferred(),
			WithKind(diag.FixKindRefactor),
			WithApplicability(diag.FixApplicabilitySafeWithHeuristics)).
		Advice("compile with --mode aot", WithID("custom-id"))
	fixes := set.Fixes()
	if len(fixes) != 2 {
		t.Fatalf("expected 2 fixes, got %d", len(fixes))
	}
	first := fixes[0]
	if !first.IsPreferred || first.ID != "OWN3301-1-4-0" {
		t.Fatalf("unexpected first fix %+v", first)
	}
	if first.Kind != diag.FixKindRefactor || first.Applicability != diag.FixApplicabilitySafeWithHeuristics {
		t.Fatalf("options not applied: %v %v", first.Kind, first.Applicability)
	}
	if e := first.Edits[0]; e.Span.End != e.Span.Start || e.NewText != "// " {
		t.Fatalf("insert is not an empty-span edit: %+v", e)
	}
	if fixes[1].ID != "custom-id" || fixes[1].Applicability != diag.FixApplicabilityManualReview || len(fixes[1].Edits) != 0 {
		t.Fatalf("unexpected advice %+v", fixes[1])
	}

	d := set.AttachTo(diag.NewError(diag.OwnUseAfterMove, site, "moved"))
	if len(d.Fixes) != 2 {
		t.Fatalf("fixes not attached")
	}
}

func TestRenderWrapAndReplace(t *testing.T) {
	snippet := "f(x); g(x)"
	wrap := For(diag.OwnUseAfterMove, source.Span{}).
		Wrap("clone", source.Span{File: 1, Start: 2, End: 3}, "", ".clone()").Fixes()[0]
	got, err := Render(snippet, 0, wrap)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "f(x.clone()); g(x)" {
		t.Fatalf("unexpected rendering %q", got)
	}

	// snippet starting at offset 10 of its file
	repl := For(diag.EffViolation, source.Span{}).
		Replace("rename", source.Span{File: 1, Start: 12, End: 13}, "y", "x").Fixes()[0]
	got, err = Render(snippet, 10, repl)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "f(y); g(x)" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestApplyEditsRejectsBadInput(t *testing.T) {
	content := []byte("abcdef")
	_, err := ApplyEdits(content, 0, []diag.TextEdit{
		{Span: source.Span{Start: 0, End: 3}, NewText: "x"},
		{Span: source.Span{Start: 2, End: 4}, NewText: "y"},
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	_, err = ApplyEdits(content, 0, []diag.TextEdit{
		{Span: source.Span{Start: 0, End: 1}, NewText: "x", OldText: "z"},
	})
	if !errors.Is(err, ErrGuard) {
		t.Fatalf("expected ErrGuard, got %v", err)
	}
}

func TestMakeFixIDIsStable(t *testing.T) {
	sp := source.Span{File: 3, Start: 7, End: 9}
	if MakeFixID(diag.EffViolation, sp, 0) != "EFF3201-3-7-0" {
		t.Fatalf("unexpected id %q", MakeFixID(diag.EffViolation, sp, 0))
	}
}
