package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileTransport stores each location as a file on the local filesystem.
//
// Writes go to a temporary file in the destination directory which is
// synced and then renamed over the target, so a reader never observes a
// partially written snapshot. Missing parent directories are created.
type FileTransport struct {
	perm os.FileMode
}

// NewFileTransport creates a FileTransport writing files with mode 0o644.
func NewFileTransport() *FileTransport {
	return &FileTransport{perm: 0o644}
}

// Resolve returns the absolute form of location.
func (f *FileTransport) Resolve(location string) (string, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("failed to resolve recovery location %q: %w", location, err)
	}
	return abs, nil
}

func (f *FileTransport) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(location)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", location, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("recovery location %s is a directory", location)
	}
	return true, nil
}

func (f *FileTransport) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

func (f *FileTransport) Write(ctx context.Context, location string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(location)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, f.perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, location); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file to %s: %w", location, err)
	}
	return nil
}

// Remove deletes the file at location. Removing a missing file is not an error.
func (f *FileTransport) Remove(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", location, err)
	}
	return nil
}

// List returns the files in prefix's directory whose path starts with
// prefix. Temporary files left by interrupted writes are skipped.
func (f *FileTransport) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := prefix
	if info, err := os.Stat(prefix); err != nil || !info.IsDir() {
		dir = filepath.Dir(prefix)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.Contains(e.Name(), ".tmp-") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}
