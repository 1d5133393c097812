package modules

import (
	"errors"
	"fmt"
	"strings"

	"hostgen/internal/diag"
	"hostgen/internal/fix"
	"hostgen/internal/source"
)

var (
	ErrUnknownPackage     = errors.New("unknown package")
	ErrCircularDependency = errors.New("circular dependency")
	ErrVersionConflict    = errors.New("version conflict")
	ErrUnresolvedLocal    = errors.New("unresolved local import")
	ErrInvalidImport      = errors.New("invalid import")
)

// UnknownPackageError: an external import names a package the metadata
// snapshot does not know.
type UnknownPackageError struct {
	Package  string
	Importer string
	Span     source.Span
}

func (e *UnknownPackageError) Error() string {
	return fmt.Sprintf("unknown package %q imported by %s", e.Package, e.Importer)
}

func (e *UnknownPackageError) Is(target error) bool { return target == ErrUnknownPackage }

func (e *UnknownPackageError) Diagnostic() *diag.Diagnostic {
	d := diag.NewError(diag.ModUnknownPackage, e.Span,
		fmt.Sprintf("package %q is not in the package metadata snapshot, so no host dependency can be declared for it", e.Package))
	return fix.For(diag.ModUnknownPackage, e.Span).
		Advice(fmt.Sprintf("add %q to the package metadata snapshot", e.Package), fix.Preferred()).
		Replace("remove the import", e.Span, "", "", fix.WithApplicability(diag.FixApplicabilityManualReview)).
		AttachTo(d)
}

// CircularDependencyError lists every unit of the offending strongly
// connected component. It is fatal for the session.
type CircularDependencyError struct {
	Units []string // discovery order
	Path  []string // closed import walk
	Span  source.Span
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency [%s]: %s",
		strings.Join(e.Units, ", "), strings.Join(e.Path, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

func (e *CircularDependencyError) Diagnostic() *diag.Diagnostic {
	var msg string
	if len(e.Units) == 1 {
		msg = fmt.Sprintf("unit %s imports itself", e.Units[0])
	} else {
		msg = fmt.Sprintf("import cycle between %s: %s",
			strings.Join(e.Units, ", "), strings.Join(e.Path, " -> "))
	}
	d := diag.NewError(diag.ModCircularDependency, e.Span, msg)
	return fix.For(diag.ModCircularDependency, e.Span).
		Advice("move the declarations shared by "+strings.Join(e.Units, ", ")+" into a new unit they both import").
		AttachTo(d)
}

// Requirement is one dependent's version requirement for an external package.
type Requirement struct {
	Unit    string
	Version string
	Span    source.Span
}

type VersionConflictError struct {
	Package      string
	Requirements []Requirement
	Err          error // verdict of the metadata service
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict for %s: %v", e.Package, e.Err)
}

func (e *VersionConflictError) Unwrap() error { return e.Err }

func (e *VersionConflictError) Is(target error) bool { return target == ErrVersionConflict }

func (e *VersionConflictError) Diagnostic() *diag.Diagnostic {
	var span source.Span
	if len(e.Requirements) > 0 {
		span = e.Requirements[0].Span
	}
	d := diag.NewError(diag.ModVersionConflict, span,
		fmt.Sprintf("units disagree on the version of %s: %v", e.Package, e.Err))
	for _, r := range e.Requirements[min(1, len(e.Requirements)):] {
		d.WithNote(r.Span, fmt.Sprintf("%s requires %s %s", r.Unit, e.Package, r.Version))
	}
	return fix.For(diag.ModVersionConflict, span).
		Advice(fmt.Sprintf("require one major version of %s in every unit", e.Package)).
		AttachTo(d)
}

type UnresolvedLocalError struct {
	Importer  string
	Path      string // as written
	Canonical string
	Tried     []string
	Span      source.Span
}

func (e *UnresolvedLocalError) Error() string {
	return fmt.Sprintf("%s: cannot find unit %s (imported as %q)", e.Importer, e.Canonical, e.Path)
}

func (e *UnresolvedLocalError) Is(target error) bool { return target == ErrUnresolvedLocal }

func (e *UnresolvedLocalError) Diagnostic() *diag.Diagnostic {
	d := diag.NewError(diag.ModUnresolvedLocal, e.Span,
		fmt.Sprintf("no dump for local unit %s was found on the search paths", e.Canonical))
	if len(e.Tried) > 0 {
		d.WithNote(e.Span, "tried "+strings.Join(e.Tried, ", "))
	}
	return fix.For(diag.ModUnresolvedLocal, e.Span).
		Advice(fmt.Sprintf("emit %s.tree or add its directory to [modules].search_paths", e.Canonical)).
		AttachTo(d)
}

type InvalidImportError struct {
	Importer string
	Path     string
	Span     source.Span
	Err      error
}

func (e *InvalidImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid import %q: %v", e.Importer, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: invalid import %q", e.Importer, e.Path)
}

func (e *InvalidImportError) Unwrap() error { return e.Err }

func (e *InvalidImportError) Is(target error) bool { return target == ErrInvalidImport }

func (e *InvalidImportError) Diagnostic() *diag.Diagnostic {
	msg := fmt.Sprintf("import path %q is malformed", e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	d := diag.NewError(diag.ModInvalidImport, e.Span, msg)
	return fix.For(diag.ModInvalidImport, e.Span).
		Advice(`write local imports as "./path", standard library imports as "std::module" and packages by name`).
		AttachTo(d)
}

// LoadError: a located unit dump could not be read or decoded.
type LoadError struct {
	Unit string
	Span source.Span
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Unit, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Diagnostic() *diag.Diagnostic {
	d := diag.NewError(diag.IOLoadError, e.Span, e.Error())
	return fix.For(diag.IOLoadError, e.Span).
		Advice("regenerate the unit dump with the front end").
		AttachTo(d)
}
