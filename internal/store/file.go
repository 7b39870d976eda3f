// internal/store/file.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"guesstream/internal/models"
)

// FileBackend stores the viewer map as one JSON document on disk, rewritten
// wholesale on every save. Writes go through a temp file plus rename so a
// crash mid-write never truncates the previous document.
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (f *FileBackend) Load(_ context.Context) (map[string]models.Viewer, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]models.Viewer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	viewers := map[string]models.Viewer{}
	if err := json.Unmarshal(data, &viewers); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}

	return viewers, nil
}

func (f *FileBackend) Save(_ context.Context, viewers map[string]models.Viewer) error {
	data, err := json.MarshalIndent(viewers, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".viewers-*.json")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), f.Path)
}
