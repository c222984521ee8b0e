package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// localMirror copies outputs into another directory on this machine
type localMirror struct {
	root string
}

func newLocalMirror(target Target) *localMirror {
	return &localMirror{root: filepath.FromSlash(target.Prefix)}
}

func (m *localMirror) Upload(_ context.Context, key, _ string, reader io.Reader) error {
	// key already carries the root
	fullPath := filepath.FromSlash(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}
	return nil
}

func (m *localMirror) Close() error { return nil }
