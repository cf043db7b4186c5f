// Package storage archives uploaded bank spreadsheets on the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no archived file has the requested ID.
var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the storage root
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the archive operations used by the import flow
type Storage interface {
	// Save stores a file and returns its metadata
	Save(ctx context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for an archived file
	Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes an archived file
	Delete(ctx context.Context, fileID uuid.UUID) error

	// List returns metadata for every archived file
	List(ctx context.Context) ([]*FileInfo, error)

	// Sweep deletes files created before cutoff and reports how many went
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
