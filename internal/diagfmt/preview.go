package diagfmt

import (
	"fmt"
	"strings"

	"hostgen/internal/diag"
	"hostgen/internal/fix"
	"hostgen/internal/source"
)

type fixEditPreview struct {
	before []string
	after  []string
}

// buildFixPreview renders the lines touched by a fix before and after its
// edits are applied.
func buildFixPreview(fs *source.FileSet, f diag.Fix) (fixEditPreview, error) {
	if fs == nil {
		return fixEditPreview{}, fmt.Errorf("nil FileSet")
	}
	if len(f.Edits) == 0 {
		return fixEditPreview{}, fmt.Errorf("fix %q has no edits", f.Title)
	}
	span := f.Edits[0].Span
	for _, e := range f.Edits[1:] {
		if e.Span.File != span.File {
			return fixEditPreview{}, fmt.Errorf("fix %q spans several files", f.Title)
		}
		span = span.Cover(e.Span)
	}
	file := fs.Get(span.File)
	if file == nil {
		return fixEditPreview{}, fmt.Errorf("file %d not found in FileSet", span.File)
	}

	startPos, endPos := fs.Resolve(span)
	endLine := max(endPos.Line, startPos.Line)

	blockStart := file.LineStart(startPos.Line)
	blockEnd := max(file.LineEnd(endLine), blockStart)

	original := string(file.Content[blockStart:blockEnd])
	after, err := fix.Render(original, blockStart, f)
	if err != nil {
		return fixEditPreview{}, err
	}
	return fixEditPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}

