package persistid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type fileState struct {
	VisitorID string `json:"visitorId"`
}

// FileBackend persists the identifier in a small JSON state file. Writes go
// through a temp file and rename so a crash never leaves a torn state.
type FileBackend struct {
	path string
}

// NewFileBackend builds a backend over the given state file path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Name() string { return "file" }

// Available reports whether the parent directory exists or can be created.
func (b *FileBackend) Available() bool {
	dir := filepath.Dir(b.path)
	if info, err := os.Stat(dir); err == nil {
		return info.IsDir()
	}
	return os.MkdirAll(dir, 0o755) == nil
}

func (b *FileBackend) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrAbsent
		}
		return "", fmt.Errorf("read state file: %w", err)
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt state file counts as empty; respawn rewrites it.
		return "", ErrAbsent
	}
	if state.VisitorID == "" {
		return "", ErrAbsent
	}
	return state.VisitorID, nil
}

func (b *FileBackend) Write(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(fileState{VisitorID: value})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
