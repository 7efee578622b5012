package server

import (
	"context"
	"fmt"

	"timeframechart/internal/models"
	"timeframechart/internal/storage"
)

// FileManager handles file I/O operations only (load/store)
type FileManager struct {
	server *Server
}

// NewFileManager creates a new file manager
func NewFileManager(server *Server) *FileManager {
	return &FileManager{server: server}
}

// LoadDataFile reads the configured data object from storage
func (fm *FileManager) LoadDataFile(ctx context.Context) ([]byte, error) {
	data, err := fm.server.Storage.GetFile(ctx, fm.server.Config.DataObject)
	if err != nil {
		return nil, fmt.Errorf("failed to load data file: %w", err)
	}
	return data, nil
}

// DataFileExists reports whether the configured data object is present in storage
func (fm *FileManager) DataFileExists(ctx context.Context) (bool, error) {
	exists, err := fm.server.Storage.FileExists(ctx, fm.server.Config.DataObject)
	if err != nil {
		return false, fmt.Errorf("failed to check data file: %w", err)
	}
	return exists, nil
}

// ArchiveExport stores a copy of an exported image and returns its path
// Uses path structure: exports/YYYY/MM/DD/chart-YYYY-MM-DD-HH-MM-SS.<ext>
func (fm *FileManager) ArchiveExport(ctx context.Context, format models.ImageFormat, data []byte) (string, error) {
	objectPath := storage.ExportObjectPath(fm.server.now(), string(format))
	if err := fm.server.Storage.StoreFile(ctx, objectPath, data); err != nil {
		return "", fmt.Errorf("failed to archive export: %w", err)
	}
	return objectPath, nil
}

// ListExports lists archived exports
func (fm *FileManager) ListExports(ctx context.Context) ([]string, error) {
	files, err := fm.server.Storage.ListDir(ctx, "exports")
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return files, nil
}

// LoadExport reads an archived export
func (fm *FileManager) LoadExport(ctx context.Context, name string) ([]byte, error) {
	data, err := fm.server.Storage.GetFile(ctx, "exports/"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to load export: %w", err)
	}
	return data, nil
}
