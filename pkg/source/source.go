// Package source holds the process-wide input table: byte-indexed source
// text addressed by file id, plus the Position and Span types built on top
// of it.
package source

import (
	"fmt"
	"sync"
)

// FileID identifies a file registered in a Table. Zero is never a valid id.
type FileID uint32

// Position is a single point in a file: a byte offset into whatever content
// is currently registered for that file.
type Position struct {
	File   FileID
	Offset int
}

// Less gives the total order on positions within the same file. Comparing
// positions from different files is a programmer error and always reports
// false.
func (p Position) Less(o Position) bool {
	return p.File == o.File && p.Offset < o.Offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.File, p.Offset)
}

// Span is a half-open byte range [Start, End) within a single file.
type Span struct {
	Start Position
	End   Position
}

// Len returns end-start. Panics if the span crosses files.
func (s Span) Len() int {
	if s.Start.File != s.End.File {
		panic("source: span crosses files")
	}
	return s.End.Offset - s.Start.Offset
}

func (s Span) String() string {
	return fmt.Sprintf("%d[%d:%d)", s.Start.File, s.Start.Offset, s.End.Offset)
}

// file is the content registered for one FileID.
type file struct {
	path  string
	data  []byte
	lines []int // byte offset of the start of each line; lines[0] == 0
}

func newFile(path string, data []byte) *file {
	f := &file{path: path, data: data}
	f.lines = []int{0}
	for i, b := range data {
		if b == '\n' {
			f.lines = append(f.lines, i+1)
		}
	}
	return f
}

// lineCol converts a byte offset into a 1-based (line, col) pair.
func (f *file) lineCol(offset int) (line, col int) {
	// binary search for the last line start <= offset
	lo, hi := 0, len(f.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - f.lines[lo] + 1
}

// Table is the process-wide mapping from FileID to (path, contents, line
// index). Spans remain structurally valid (their FileID still resolves)
// against whatever content is currently registered for that file, even
// after a Replace — per spec.md §3.1 a Span's validity is not tied to a
// particular content snapshot, only to its FileID still being present.
type Table struct {
	mu    sync.RWMutex
	files map[FileID]*file
	next  FileID
}

// NewTable returns an empty input table.
func NewTable() *Table {
	return &Table{files: make(map[FileID]*file), next: 1}
}

// Add registers new file content and returns its FileID.
func (t *Table) Add(path string, data []byte) FileID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.files[id] = newFile(path, data)
	return id
}

// Replace overwrites the content registered for an existing FileID. Spans
// referring to this FileID remain structurally valid; their byte ranges are
// simply interpreted against the new content.
func (t *Table) Replace(id FileID, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.files[id]; ok {
		t.files[id] = newFile(f.path, data)
	}
}

// Remove drops a file from the table.
func (t *Table) Remove(id FileID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, id)
}

// Path returns the registered path for id, or "" if id is unknown.
func (t *Table) Path(id FileID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if f, ok := t.files[id]; ok {
		return f.path
	}
	return ""
}

// Bytes returns the current content registered for id.
func (t *Table) Bytes(id FileID) []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if f, ok := t.files[id]; ok {
		return f.data
	}
	return nil
}

// Slice returns the bytes covered by span.
func (t *Table) Slice(span Span) []byte {
	b := t.Bytes(span.Start.File)
	if b == nil {
		return nil
	}
	if span.End.Offset > len(b) {
		return b[span.Start.Offset:]
	}
	return b[span.Start.Offset:span.End.Offset]
}

// LineCol returns the 1-based line and column for a position.
func (t *Table) LineCol(p Position) (line, col int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.files[p.File]
	if !ok {
		return 0, 0
	}
	return f.lineCol(p.Offset)
}

// Len returns the number of bytes currently registered for id.
func (t *Table) Len(id FileID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if f, ok := t.files[id]; ok {
		return len(f.data)
	}
	return 0
}
