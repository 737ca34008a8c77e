// Package source holds loaded source buffers and the offset-to-position
// tables used to render diagnostics.
package source

import (
	"os"
	"sort"

	"github.com/pkg/errors"
)

// File is a loaded source file.  The content is read-only after loading; the
// line-start table is computed lazily on first position query.
type File struct {
	// Name is the path of the file as shown in diagnostics.
	Name string

	// Content is the raw UTF-8 source text.
	Content []byte

	lineStarts []int
}

// NewFile wraps an in-memory buffer as a source file.
func NewFile(name string, content []byte) *File {
	return &File{Name: name, Content: content}
}

// Load reads a source file from disk.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading source file `%s`", path)
	}
	return &File{Name: path, Content: content}, nil
}

// buildLineStarts computes the byte offset of the start of every line.
func (f *File) buildLineStarts() {
	f.lineStarts = append(f.lineStarts, 0)
	for i, b := range f.Content {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
}

// PositionOf converts a byte offset into a 1-indexed line and column pair.
// Offsets past the end of the file report the final position.
func (f *File) PositionOf(offset int) (line, col int) {
	if f.lineStarts == nil {
		f.buildLineStarts()
	}

	if offset > len(f.Content) {
		offset = len(f.Content)
	}

	// The line containing `offset` is the last line start <= offset.
	ln := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	}) - 1

	return ln + 1, offset - f.lineStarts[ln] + 1
}

// Line returns the text of the 1-indexed line without its trailing newline.
func (f *File) Line(n int) string {
	if f.lineStarts == nil {
		f.buildLineStarts()
	}

	if n < 1 || n > len(f.lineStarts) {
		return ""
	}

	start := f.lineStarts[n-1]
	end := len(f.Content)
	if n < len(f.lineStarts) {
		end = f.lineStarts[n] - 1
	}
	if end > 0 && end > start && f.Content[end-1] == '\r' {
		end--
	}

	return string(f.Content[start:end])
}

// -----------------------------------------------------------------------------

// Map indexes every loaded source file by name for the duration of a
// compilation run.
type Map struct {
	files map[string]*File
}

// NewMap creates an empty source map.
func NewMap() *Map {
	return &Map{files: make(map[string]*File)}
}

// Add registers a file with the map and returns it.
func (m *Map) Add(f *File) *File {
	m.files[f.Name] = f
	return f
}

// Get retrieves a file by name, or nil if it was never loaded.
func (m *Map) Get(name string) *File {
	return m.files[name]
}
