// Package bucket abstracts the configuration/artifact object store (GCS)
// that is the scheduler's single source of shared state (§5, §6). Writes go
// through an atomic temp-then-rename path so concurrent readers never see a
// partially written object.
package bucket

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Read when the object does not exist.
var ErrNotFound = errors.New("bucket: object not found")

// Store is the object-store abstraction every component depends on. A GCS
// implementation backs it in production (gcsStore); tests use the in-memory
// fake in memstore.go.
type Store interface {
	// Read returns the full contents of name, or ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write atomically replaces name's contents with data.
	Write(ctx context.Context, name string, data []byte) error
	// List returns object names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes name. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
}
