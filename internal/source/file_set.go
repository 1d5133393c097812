package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"fortio.org/safecast"
)

// FileSet owns the source text referenced by spans. The front end hands the text over
// together with the typed tree; the engine only needs it to render diagnostics.
// Safe for concurrent use.
type FileSet struct {
	mu    sync.RWMutex
	files []File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet. FileID 0 is reserved so that the zero Span
// never points at a real file.
func NewFileSet() *FileSet {
	return &FileSet{
		files: []File{{ID: 0, Path: ""}},
		index: make(map[string]FileID),
	}
}

// Add stores a file, computes its line index and returns a new FileID.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	content, hadCRLF := normalizeCRLF(content)
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	normalizedPath := filepath.ToSlash(path)

	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(n)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		nl:      newlineOffsets(content),
		Flags:   flags,
	})
	fileSet.index[normalizedPath] = id
	return id
}

// AddVirtual adds an in-memory file with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Load reads a file from disk and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fileSet.Add(path, content, 0), nil
}

// Get returns the file for id, or nil when id is unknown.
func (fileSet *FileSet) Get(id FileID) *File {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	if int(id) >= len(fileSet.files) || id == 0 {
		return nil
	}
	return &fileSet.files[id]
}

// Lookup returns the latest file id registered for path.
func (fileSet *FileSet) Lookup(path string) (FileID, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	id, ok := fileSet.index[filepath.ToSlash(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	if f == nil {
		return LineCol{}, LineCol{}
	}
	return f.position(span.Start), f.position(span.End)
}

// Text returns the source text under span, or "" when it is out of range.
func (fileSet *FileSet) Text(span Span) string {
	f := fileSet.Get(span.File)
	if f == nil || span.End < span.Start || int(span.End) > len(f.Content) {
		return ""
	}
	return string(f.Content[span.Start:span.End])
}

func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}
	out := make([]byte, 0, len(content))
	changed := false
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			changed = true
			continue
		}
		out = append(out, content[i])
	}
	return out, changed
}
