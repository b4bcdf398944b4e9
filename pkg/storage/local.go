package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDirName = ".meta"

// LocalStorage implements Storage using the local filesystem.
// Blobs live under <root>/<logical type>/, metadata under <root>/.meta/<id>.json.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, metaDirName), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// Upload stores a file and returns its metadata
func (s *LocalStorage) Upload(ctx context.Context, logicalType, filename, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileID := uuid.New()

	typeDir := logicalDir(logicalType)
	if err := os.MkdirAll(filepath.Join(s.basePath, typeDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create type directory: %w", err)
	}

	storedFilename := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename))
	relPath := filepath.Join(typeDir, storedFilename)
	filePath := filepath.Join(s.basePath, relPath)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		LogicalType: logicalType,
		Size:        size,
		ContentType: contentType,
		Path:        relPath,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.saveMetadata(info); err != nil {
		os.Remove(filePath)
		return nil, err
	}

	return info, nil
}

// Download opens a file by its ID
func (s *LocalStorage) Download(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.basePath, info.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// Delete removes a file and its metadata
func (s *LocalStorage) Delete(ctx context.Context, fileID uuid.UUID) error {
	info, err := s.GetInfo(ctx, fileID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, info.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if err := os.Remove(s.metaPath(fileID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}

	return nil
}

// List returns all files of a logical type. An empty type lists everything.
func (s *LocalStorage) List(ctx context.Context, logicalType string) ([]*FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, metaDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		info, err := s.GetInfo(ctx, id)
		if err != nil {
			continue
		}
		if logicalType != "" && info.LogicalType != logicalType {
			continue
		}
		files = append(files, info)
	}

	return files, nil
}

// GetInfo returns metadata for a file without opening it
func (s *LocalStorage) GetInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

func (s *LocalStorage) metaPath(fileID uuid.UUID) string {
	return filepath.Join(s.basePath, metaDirName, fileID.String()+".json")
}

func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(info.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// logicalDir maps a logical type such as "reference/material" onto a
// relative directory. Unsafe segments are dropped.
func logicalDir(logicalType string) string {
	var segments []string
	for _, seg := range strings.Split(logicalType, "/") {
		seg = sanitizeFilename(strings.TrimSpace(seg))
		if seg == "" || seg == "." || seg == "_" || seg == metaDirName {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "misc"
	}
	return filepath.Join(segments...)
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
