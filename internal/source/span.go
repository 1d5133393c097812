package source

import (
	"fmt"
)

// Span is a half-open byte range inside one file.
type Span struct {
	File  FileID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

// IsZero reports whether the span is the zero value (no location attached).
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Before orders spans by file, then start, then end.
func (s Span) Before(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Start != other.Start {
		return s.Start < other.Start
	}
	return s.End < other.End
}
