package fsxlocal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Abraxas-365/docqueue/pkg/fsx"
)

// LocalFileSystem implements fsx.FileSystem on a directory. Every path is
// resolved below basePath.
type LocalFileSystem struct {
	basePath string
}

// NewLocalFileSystem creates basePath if needed.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &LocalFileSystem{basePath: absPath}, nil
}

func (l *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, l.mapErr("read", path, err)
	}
	return data, nil
}

func (l *LocalFileSystem) Stat(ctx context.Context, path string) (fsx.FileInfo, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return fsx.FileInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return fsx.FileInfo{}, l.mapErr("stat", path, err)
	}
	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: fsx.ContentType(full),
	}, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, l.mapErr("stat", path, err)
	}
	return true, nil
}

// WriteFile writes through a temp file and a rename, so readers never see a
// partial upload.
func (l *LocalFileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return l.mapErr("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return l.mapErr("write", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return l.mapErr("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return l.mapErr("write", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return l.mapErr("write", path, err)
	}
	return nil
}

// DeleteFile is idempotent.
func (l *LocalFileSystem) DeleteFile(ctx context.Context, path string) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return l.mapErr("delete", path, err)
	}
	return nil
}

func (l *LocalFileSystem) GetBasePath() string {
	return l.basePath
}

func (l *LocalFileSystem) fullPath(path string) (string, error) {
	cleaned, err := fsx.CleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.basePath, filepath.FromSlash(cleaned)), nil
}

func (l *LocalFileSystem) mapErr(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fsx.NotFound(path)
	}
	return fsx.StorageError(op, path, err)
}

var _ fsx.FileSystem = (*LocalFileSystem)(nil)
