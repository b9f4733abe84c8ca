package persistence

import (
	"context"
	"errors"
)

// ErrNoDocument is returned by a Backend when no document has been written yet.
var ErrNoDocument = errors.New("document does not exist")

// Backend reads and writes the raw store document.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
