package compiler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/chazu/sophia/vm"
)

// Sink receives the text of each compiled class.
type Sink interface {
	// Open returns the destination of one class unit.
	Open(class string) (io.WriteCloser, error)
	// Abort discards whatever was written for class.
	Abort(class string) error
}

// ---------------------------------------------------------------------------
// DirSink: one unit file per class
// ---------------------------------------------------------------------------

// DirSink writes <Dir>/<Class>.j files.
type DirSink struct {
	Dir string
}

// Path returns the file written for class.
func (s DirSink) Path(class string) string {
	return filepath.Join(s.Dir, class+vm.UnitExt)
}

// Open creates the unit file of class, creating Dir if needed.
func (s DirSink) Open(class string) (io.WriteCloser, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	f, err := os.Create(s.Path(class))
	if err != nil {
		return nil, fmt.Errorf("create unit: %w", err)
	}
	return f, nil
}

// Abort removes the partial unit file of class.
func (s DirSink) Abort(class string) error {
	err := os.Remove(s.Path(class))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove partial unit: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// MemorySink: units kept in memory
// ---------------------------------------------------------------------------

// MemorySink collects unit text by class name.
type MemorySink struct {
	Units map[string]string
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Units: make(map[string]string)}
}

// Open returns a buffer committed to Units on Close.
func (s *MemorySink) Open(class string) (io.WriteCloser, error) {
	return &memoryUnit{sink: s, class: class}, nil
}

// Abort drops the unit of class.
func (s *MemorySink) Abort(class string) error {
	delete(s.Units, class)
	return nil
}

// Classes returns the collected class names in sorted order.
func (s *MemorySink) Classes() []string {
	names := make([]string, 0, len(s.Units))
	for name := range s.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type memoryUnit struct {
	bytes.Buffer
	sink  *MemorySink
	class string
}

func (u *memoryUnit) Close() error {
	u.sink.Units[u.class] = u.String()
	return nil
}
