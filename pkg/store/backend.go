package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Backend reads and writes serialized documents.
type Backend interface {
	Read(kind Kind) ([]byte, error)
	Write(kind Kind, data []byte) error
}

// FileBackend keeps each document as a JSON file inside Dir.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	return &FileBackend{Dir: dir}, nil
}

func (b *FileBackend) path(kind Kind) string {
	return filepath.Join(b.Dir, kind.FileName())
}

// Read returns the file contents; a missing file yields fs.ErrNotExist.
func (b *FileBackend) Read(kind Kind) ([]byte, error) {
	return os.ReadFile(b.path(kind))
}

// Write overwrites the file in place.
func (b *FileBackend) Write(kind Kind, data []byte) error {
	return os.WriteFile(b.path(kind), data, 0o644)
}

// MemoryBackend keeps documents in memory. Used by tests and dry runs.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[Kind][]byte
	// FailWrites makes every Write return an error.
	FailWrites bool
	writes     int
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[Kind][]byte)}
}

// Read returns a copy of the stored document.
func (b *MemoryBackend) Read(kind Kind) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.docs[kind]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data.
func (b *MemoryBackend) Write(kind Kind, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites {
		return fmt.Errorf("store: write to %s refused", kind)
	}
	b.docs[kind] = append([]byte(nil), data...)
	b.writes++
	return nil
}

// Put seeds a raw document.
func (b *MemoryBackend) Put(kind Kind, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[kind] = []byte(data)
}

// Writes returns the number of successful writes.
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
