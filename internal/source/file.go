package source

import (
	"fmt"

	"fortio.org/safecast"
)

// FileID indexes a FileSet; 0 is never a real file.
type FileID uint32

// FileFlags records how a file entered the set.
type FileFlags uint8

const (
	FileVirtual        FileFlags = 1 << iota // from memory: a tree bundle or a test
	FileNormalizedCRLF                       // \r\n was rewritten to \n on Add
)

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// File is the text of one unit's source as handed over by the front end.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Flags   FileFlags
	nl      []uint32 // offsets of '\n'
}

// Virtual reports whether the file never existed on disk.
func (f *File) Virtual() bool {
	return f != nil && f.Flags&FileVirtual != 0
}

// Len is the content length in bytes.
func (f *File) Len() uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	return n
}

// LineStart is the offset of the first byte of line n (1-based). Lines
// past the end start at Len.
func (f *File) LineStart(n uint32) uint32 {
	switch {
	case n <= 1:
		return 0
	case int(n-2) < len(f.nl):
		return f.nl[n-2] + 1
	}
	return f.Len()
}

// LineEnd is the offset of the newline ending line n, or Len for the
// last line.
func (f *File) LineEnd(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	if int(n-1) < len(f.nl) {
		return f.nl[n-1]
	}
	return f.Len()
}

// Line returns line n (1-based) without its newline; "" past the end.
func (f *File) Line(n uint32) string {
	if f == nil || n == 0 || int(n-1) > len(f.nl) {
		return ""
	}
	start, end := f.LineStart(n), f.LineEnd(n)
	if start >= f.Len() || start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// position converts a byte offset to a line and column.
func (f *File) position(off uint32) LineCol {
	// largest i with nl[i] < off
	lo, hi := 0, len(f.nl)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if f.nl[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if hi < 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	line, err := safecast.Conv[uint32](hi + 2)
	if err != nil {
		panic(fmt.Errorf("line overflow: %w", err))
	}
	return LineCol{Line: line, Col: off - f.nl[hi]}
}

func newlineOffsets(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32+1)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) // #nosec G115 -- bounded by content length checked on Add
		}
	}
	return out
}
