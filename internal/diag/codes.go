package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Interface resolution
	IfcInfo             Code = 3400
	IfcNoImplementation Code = 3401
	IfcAmbiguousMethod  Code = 3402

	// Effects
	EffInfo          Code = 3200
	EffViolation     Code = 3201
	EffUnknownEffect Code = 3202
	EffUnknownCallee Code = 3203

	// Ownership transfer
	OwnInfo         Code = 3300
	OwnUseAfterMove Code = 3301

	// I/O of engine inputs (tree bundles, snapshots)
	IOLoadError Code = 4001

	// Module resolution / dependency graph
	ModInfo               Code = 5100
	ModUnknownPackage     Code = 5101
	ModCircularDependency Code = 5102
	ModVersionConflict    Code = 5103
	ModUnresolvedLocal    Code = 5104
	ModInvalidImport      Code = 5105

	// Driver / session
	DrvInfo                  Code = 6100
	DrvSessionStopped        Code = 6101
	DrvDiagnosticsSuppressed Code = 6102
)

var codeDescription = map[Code]string{
	UnknownCode:              "Unknown error",
	IfcInfo:                  "Interface resolution information",
	IfcNoImplementation:      "No implementation for method",
	IfcAmbiguousMethod:       "Ambiguous method call",
	EffInfo:                  "Effect information",
	EffViolation:             "Effect violation",
	EffUnknownEffect:         "Unknown effect name",
	EffUnknownCallee:         "Callee without effect signature",
	OwnInfo:                  "Ownership information",
	OwnUseAfterMove:          "Use after move",
	IOLoadError:              "Failed to load input",
	ModInfo:                  "Module information",
	ModUnknownPackage:        "Unknown package",
	ModCircularDependency:    "Circular dependency",
	ModVersionConflict:       "Version conflict",
	ModUnresolvedLocal:       "Unresolved local module",
	ModInvalidImport:         "Invalid import",
	DrvInfo:                  "Session information",
	DrvSessionStopped:        "Session stopped scheduling units",
	DrvDiagnosticsSuppressed: "Diagnostics suppressed",
}

// codeRationale explains why a rule exists; renderers print it under the message.
var codeRationale = map[Code]string{
	IfcNoImplementation:   "the emitter cannot name a method that no satisfied interface provides",
	IfcAmbiguousMethod:    "choosing one candidate silently could call a different implementation than intended",
	EffViolation:          "a caller may only perform the effects it declares, otherwise capabilities leak across the boundary",
	EffUnknownEffect:      "an annotation the engine cannot read cannot bound what the function may do",
	EffUnknownCallee:      "a callee the engine never analysed is taken as pure, so its effects go unchecked",
	OwnUseAfterMove:       "a value moved at one site cannot be used at a later site in the host language",
	ModUnknownPackage:     "an external package that the package index does not know cannot be added to the build manifest",
	ModCircularDependency: "units on a cycle have no safe analysis or initialisation order",
	ModVersionConflict:    "two dependents require versions of one package that cannot be linked together",
	ModUnresolvedLocal:    "a relative import must name a unit the front end produced",
	ModInvalidImport:      "the import path cannot be canonicalised",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3200 && ic < 3300:
		return fmt.Sprintf("EFF%04d", ic)
	case ic >= 3300 && ic < 3400:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 3400 && ic < 3500:
		return fmt.Sprintf("IFC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5100 && ic < 5200:
		return fmt.Sprintf("MOD%04d", ic)
	case ic >= 6100 && ic < 6200:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

// Rationale returns why the rule matters, or "" for informational codes.
func (c Code) Rationale() string {
	return codeRationale[c]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
