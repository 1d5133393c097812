package types

import "strings"

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID || typesIn == nil {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindUnit:
		return "()"
	case KindBool, KindInt, KindFloat, KindString, KindAny:
		return tt.Kind.String()
	case KindRef:
		return "&" + labelDepth(typesIn, tt.Elem, depth+1)
	case KindMutRef:
		return "&mut " + labelDepth(typesIn, tt.Elem, depth+1)
	case KindBox:
		return "Box<" + labelDepth(typesIn, tt.Elem, depth+1) + ">"
	case KindShared:
		return "Shared<" + labelDepth(typesIn, tt.Elem, depth+1) + ">"
	case KindNamed:
		if len(tt.Args) == 0 {
			return tt.Name
		}
		return tt.Name + "<" + labelList(typesIn, tt.Args, depth) + ">"
	case KindFn:
		return "fn(" + labelList(typesIn, tt.Args, depth) + ") -> " + labelDepth(typesIn, tt.Result, depth+1)
	case KindParam:
		if tt.Name == "" {
			return "T"
		}
		return tt.Name
	default:
		return "?"
	}
}

func labelList(typesIn *Interner, ids []TypeID, depth int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = labelDepth(typesIn, id, depth+1)
	}
	return strings.Join(parts, ", ")
}
