package diagfmt

import (
	"encoding/json"
	"io"
	"sort"

	"hostgen/internal/diag"
	"hostgen/internal/source"
)

// JSONOpts configures JSON and BuildDiagnosticsOutput. Max trims the
// printed list only; Count and Errors still describe the whole bag.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	BaseDir          string
	Max              int
	IncludeNotes     bool
	IncludeFixes     bool
	IncludePreviews  bool
}

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file,omitempty"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FixEditJSON представляет одно редактирование для JSON
type FixEditJSON struct {
	Location LocationJSON `json:"location"`
	NewText  string       `json:"new_text"`
	OldText  string       `json:"old_text,omitempty"`
}

// FixJSON представляет предложение по исправлению для JSON
type FixJSON struct {
	ID            string        `json:"id,omitempty"`
	Title         string        `json:"title"`
	Kind          string        `json:"kind"`
	Applicability string        `json:"applicability"`
	IsPreferred   bool          `json:"is_preferred,omitempty"`
	Edits         []FixEditJSON `json:"edits,omitempty"`
	BeforeLines   []string      `json:"before_lines,omitempty"`
	AfterLines    []string      `json:"after_lines,omitempty"`
	PreviewError  string        `json:"preview_error,omitempty"`
}

// RenderingJSON is the refused before/after transformation.
type RenderingJSON struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity  string         `json:"severity"`
	Code      string         `json:"code"`
	Title     string         `json:"title"`
	Rationale string         `json:"rationale,omitempty"`
	Message   string         `json:"message"`
	Location  LocationJSON   `json:"location"`
	Notes     []NoteJSON     `json:"notes,omitempty"`
	Fixes     []FixJSON      `json:"fixes,omitempty"`
	Rendering *RenderingJSON `json:"rendering,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Dropped     int              `json:"dropped,omitempty"`
}

func makeLocation(span source.Span, fs *source.FileSet, opts JSONOpts) LocationJSON {
	loc := LocationJSON{
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if fs == nil {
		return loc
	}
	f := fs.Get(span.File)
	if f == nil {
		return loc
	}
	loc.File = displayPath(f.Path, opts.PathMode, opts.BaseDir)

	if opts.IncludePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// sortFixes orders preferred and safer fixes first.
func sortFixes(in []diag.Fix) []diag.Fix {
	fixes := append([]diag.Fix(nil), in...)
	sort.SliceStable(fixes, func(i, j int) bool {
		fi, fj := fixes[i], fixes[j]
		if fi.IsPreferred != fj.IsPreferred {
			return fi.IsPreferred
		}
		if fi.Applicability != fj.Applicability {
			return fi.Applicability < fj.Applicability
		}
		if fi.Kind != fj.Kind {
			return fi.Kind < fj.Kind
		}
		if fi.Title != fj.Title {
			return fi.Title < fj.Title
		}
		return fi.ID < fj.ID
	})
	return fixes
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}
	diagnostics := make([]DiagnosticJSON, 0, maxItems)

	for _, d := range items[:maxItems] {
		diagJSON := DiagnosticJSON{
			Severity:  d.Severity.String(),
			Code:      d.Code.ID(),
			Title:     d.Code.Title(),
			Rationale: d.Rationale(),
			Message:   d.Message,
			Location:  makeLocation(d.Primary, fs, opts),
		}

		// timing payload lives in the notes
		includeNotes := opts.IncludeNotes || d.Code == diag.DrvInfo
		if includeNotes && len(d.Notes) > 0 {
			diagJSON.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				diagJSON.Notes[j] = NoteJSON{
					Message:  note.Msg,
					Location: makeLocation(note.Span, fs, opts),
				}
			}
		}

		if opts.IncludeFixes && len(d.Fixes) > 0 {
			diagJSON.Fixes = make([]FixJSON, 0, len(d.Fixes))
			for _, f := range sortFixes(d.Fixes) {
				fixJSON := FixJSON{
					ID:            f.ID,
					Title:         f.Title,
					Kind:          f.Kind.String(),
					Applicability: f.Applicability.String(),
					IsPreferred:   f.IsPreferred,
				}
				for _, edit := range f.Edits {
					fixJSON.Edits = append(fixJSON.Edits, FixEditJSON{
						Location: makeLocation(edit.Span, fs, opts),
						NewText:  edit.NewText,
						OldText:  edit.OldText,
					})
				}
				if opts.IncludePreviews && len(f.Edits) > 0 {
					if preview, err := buildFixPreview(fs, f); err != nil {
						fixJSON.PreviewError = err.Error()
					} else {
						fixJSON.BeforeLines = preview.before
						fixJSON.AfterLines = preview.after
					}
				}
				diagJSON.Fixes = append(diagJSON.Fixes, fixJSON)
			}
		}

		if d.Rendering != nil {
			diagJSON.Rendering = &RenderingJSON{Before: d.Rendering.Before, After: d.Rendering.After}
		}

		diagnostics = append(diagnostics, diagJSON)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
		Errors:      bag.ErrorCount(),
		Dropped:     bag.Dropped(),
	}
}

// JSON форматирует диагностики в JSON формат.
// Выводит массив диагностик с полной информацией о местоположении, заметках и исправлениях.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
