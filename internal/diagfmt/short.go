package diagfmt

import (
	"fmt"
	"io"

	"hostgen/internal/diag"
	"hostgen/internal/source"
)

// Short prints one line per diagnostic: <path>:<line>:<col>: <SEV> <CODE>: <Message>.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode, base string) {
	for _, d := range bag.Items() {
		loc := location(fs, d.Primary, mode, base)
		if loc == "" {
			loc = "-"
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", loc, d.Severity, d.Code.ID(), d.Message)
	}
}
