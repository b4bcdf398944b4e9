// Package storage persists uploaded and generated documents as blobs.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no blob exists for an id.
var ErrNotFound = errors.New("file not found")

// Logical types used by the application
const (
	TypeBudgetRaw     = "budget/raw"
	TypeSpecRaw       = "spec/raw"
	TypeTemplate      = "template"
	TypeGeneratedForm = "generated/form"
	typeReference     = "reference"
)

// ReferenceType returns the logical type of an uploaded reference document.
func ReferenceType(category string) string {
	return typeReference + "/" + category
}

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	LogicalType string    `json:"logical_type"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the storage root
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the blob operations the services depend on
type Storage interface {
	// Upload stores a file under a logical type and returns its metadata
	Upload(ctx context.Context, logicalType, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Download opens a file by its ID
	Download(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file by its ID
	Delete(ctx context.Context, fileID uuid.UUID) error

	// List returns all files of a logical type
	List(ctx context.Context, logicalType string) ([]*FileInfo, error)

	// GetInfo returns metadata for a file without opening it
	GetInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string `yaml:"local_path"`
}

// New creates the filesystem-backed store
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
