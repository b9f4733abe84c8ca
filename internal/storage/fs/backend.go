package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hiroki-koketsu/go-todolists/internal/persistence"
)

// Backend stores the document as a single local file. Every write
// replaces the whole file.
type Backend struct {
	path string
}

// NewBackend creates a file backend for path.
func NewBackend(path string) *Backend {
	return &Backend{path: path}
}

// Path returns the document location.
func (b *Backend) Path() string {
	return b.path
}

// Read returns the file contents, or persistence.ErrNoDocument if the file
// does not exist.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrNoDocument
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Write replaces the file with data, creating the parent directory if needed.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
