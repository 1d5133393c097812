package source

import "testing"

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.rc", []byte("let a = 1\nlet b = a\r\nprint(b)\n"))

	start, end := fs.Resolve(Span{File: id, Start: 10, End: 13})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %+v, want 2:1", start)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Fatalf("end = %+v, want 2:4", end)
	}

	f := fs.Get(id)
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected CRLF normalisation flag")
	}
	if got := f.Line(2); got != "let b = a" {
		t.Fatalf("line 2 = %q", got)
	}
	if got := f.Line(3); got != "print(b)" {
		t.Fatalf("line 3 = %q", got)
	}
	if got := f.Line(9); got != "" {
		t.Fatalf("line 9 = %q, want empty", got)
	}
}

func TestZeroFileIsReserved(t *testing.T) {
	fs := NewFileSet()
	if fs.Get(0) != nil {
		t.Fatalf("file 0 must be reserved")
	}
	id := fs.AddVirtual("x", nil)
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}
	if got, ok := fs.Lookup("x"); !ok || got != id {
		t.Fatalf("lookup = %d,%v", got, ok)
	}
}

func TestSpanCoverAndOrder(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 5}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("cover = %v", got)
	}
	if !b.Before(a) || a.Before(b) {
		t.Fatalf("ordering broken")
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 1}); got != a {
		t.Fatalf("cross-file cover changed span: %v", got)
	}
}

func TestLineOffsets(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("u.sg", []byte("ab\ncde\nf")))
	if !f.Virtual() || f.Len() != 8 {
		t.Fatalf("unexpected file %+v", f)
	}
	cases := []struct{ line, start, end uint32 }{{1, 0, 2}, {2, 3, 6}, {3, 7, 8}, {4, 8, 8}}
	for _, c := range cases {
		if s, e := f.LineStart(c.line), f.LineEnd(c.line); s != c.start || e != c.end {
			t.Fatalf("line %d = [%d,%d), want [%d,%d)", c.line, s, e, c.start, c.end)
		}
	}
	if f.Line(3) != "f" || f.Line(4) != "" {
		t.Fatalf("unexpected last lines %q %q", f.Line(3), f.Line(4))
	}
}
