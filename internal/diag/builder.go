package diag

import "hostgen/internal/source"

func New(sev Severity, code Code, primary source.Span, msg string) *Diagnostic {
	return &Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) *Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d *Diagnostic) WithNote(sp source.Span, msg string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d *Diagnostic) WithFixSuggestion(fix Fix) *Diagnostic {
	d.Fixes = append(d.Fixes, fix)
	return d
}

func (d *Diagnostic) WithRendering(before, after string) *Diagnostic {
	d.Rendering = &Rendering{Before: before, After: after}
	return d
}
