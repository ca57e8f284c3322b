// Package fsx abstracts the blob storage uploads are kept in, so the API and
// the workers can share files through local disk or S3.
package fsx

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/errx"
)

// FileInfo represents information about a stored file
type FileInfo struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

type FileDeleter interface {
	DeleteFile(ctx context.Context, path string) error
}

// FileSystem combines all file operations
type FileSystem interface {
	FileReader
	FileWriter
	FileDeleter
}

var fsxErrors = errx.NewRegistry("FSX")

var (
	ErrFileNotFound = fsxErrors.Register("FILE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "File not found")
	ErrInvalidPath  = fsxErrors.Register("INVALID_PATH", errx.TypeValidation, http.StatusBadRequest, "Invalid file path")
	ErrStorage      = fsxErrors.Register("STORAGE", errx.TypeExternal, http.StatusBadGateway, "File storage failed")
)

func NotFound(p string) *errx.Error {
	return fsxErrors.New(ErrFileNotFound).WithDetail("path", p)
}

func IsNotFound(err error) bool {
	return errx.IsCode(err, ErrFileNotFound)
}

func StorageError(op, p string, cause error) *errx.Error {
	return fsxErrors.NewWithCause(ErrStorage, cause).WithDetail("op", op).WithDetail("path", p)
}

// CleanPath normalises a slash separated relative path and rejects anything
// that would escape the storage root.
func CleanPath(p string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(p, "..") {
		return "", fsxErrors.New(ErrInvalidPath).WithDetail("path", p)
	}
	return cleaned, nil
}

// ContentType guesses a MIME type from the file extension
func ContentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
