package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a file does not exist in the backend
	ErrNotFound = errors.New("file not found")

	// ErrInvalidPath is returned for empty paths and paths leaving the storage root
	ErrInvalidPath = errors.New("invalid storage path")
)

// StorageClient defines the interface for basic storage operations.
// Paths are slash-separated and relative to the backend root.
type StorageClient interface {
	// Close closes the storage client
	Close() error

	// StoreFile stores a file at the specified path
	StoreFile(ctx context.Context, filePath string, fileData []byte) error

	// GetFile retrieves a file from the specified path
	GetFile(ctx context.Context, filePath string) ([]byte, error)

	// ListDir lists files below a directory
	ListDir(ctx context.Context, dirPath string) ([]string, error)

	// FileExists checks if a file exists at the specified path
	FileExists(ctx context.Context, filePath string) (bool, error)
}
