// Package remote abstracts the shared folder: a passive blob store that holds
// backup files and the shared-folder descriptor. There is no server-side
// logic; every device talks to the same folder and convergence is handled by
// the sync engine.
package remote

import (
	"context"
	"time"
)

// FileEntry describes one stored blob.
type FileEntry struct {
	ID         string
	Name       string
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time

	// Properties carries small application metadata alongside the content,
	// like the payload's exportedAt and schemaVersion.
	Properties map[string]string
}

// UploadInput is the request for a new blob.
type UploadInput struct {
	Name        string
	Content     []byte
	ContentType string
	Properties  map[string]string
}

// BlobStore is the operations the sync engine needs from the shared folder.
// Implementations wrap provider errors so callers can classify them with
// errors.Is (shared.ErrorTransient, shared.ErrorNotFound).
type BlobStore interface {
	// List returns every file in the folder, in no particular order.
	List(ctx context.Context) ([]FileEntry, error)

	// Upload creates a new file and returns its entry.
	Upload(ctx context.Context, in UploadInput) (FileEntry, error)

	// Download returns the content of the file with the given id.
	Download(ctx context.Context, id string) ([]byte, error)

	// Update overwrites the content of an existing file in place.
	Update(ctx context.Context, id string, content []byte) error

	// Delete removes the file with the given id.
	Delete(ctx context.Context, id string) error
}
