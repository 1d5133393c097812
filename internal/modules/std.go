package modules

import "strings"

// stdModules lists the standard library submodules the host runtime ships.
// Capability is the effect their primitives carry; empty means none.
var stdModules = map[string]string{
	"fs":          "io",
	"io":          "io",
	"net":         "io",
	"process":     "io",
	"env":         "io",
	"signal":      "io",
	"system":      "",
	"time":        "",
	"mem":         "",
	"parallel":    "",
	"simd":        "",
	"cache":       "",
	"bench":       "",
	"profile":     "",
	"collections": "",
	"sync":        "",
	"fmt":         "",
}

// StdPath qualifies a standard library path: "std/fs" and "std::fs" both
// become "std::fs".
func StdPath(path string) string {
	segs := splitQualified(path)
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "::")
}

// StdSubmodule returns the first segment after "std", or "".
func StdSubmodule(path string) string {
	segs := strings.Split(StdPath(path), "::")
	if len(segs) < 2 || segs[0] != "std" {
		return ""
	}
	return segs[1]
}

// KnownStd reports whether sub is a shipped standard library submodule.
func KnownStd(sub string) bool {
	_, ok := stdModules[sub]
	return ok
}

// StdCapability returns the effect carried by functions under a qualified
// standard library name such as "std::fs::read". Unknown names carry none.
func StdCapability(qualified string) string {
	if !strings.HasPrefix(qualified, "std::") && !strings.HasPrefix(qualified, "std/") {
		return ""
	}
	return stdModules[StdSubmodule(qualified)]
}
