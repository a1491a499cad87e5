package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

const backendName = "fs"

// Backend is a filesystem implementation of the simpleshare.BlobStore
// interface. All keys live directly inside BaseDir.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Directory holding blobs and sidecars
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

// BaseDir returns the storage root.
func (b *Backend) BaseDir() string {
	return b.baseDir
}

func (b *Backend) path(op, key string) (string, error) {
	if err := simpleshare.ValidateBlobName(key); err != nil {
		return "", b.fail(op, key, err)
	}
	return filepath.Join(b.baseDir, key), nil
}

func (b *Backend) fail(op, key string, err error) error {
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		err = fmt.Errorf("%w: %w", simpleshare.ErrObjectNotFound, err)
	case errors.Is(err, iofs.ErrExist):
		err = fmt.Errorf("%w: %w", simpleshare.ErrObjectExists, err)
	}
	return &simpleshare.StorageError{Backend: backendName, Key: key, Op: op, Err: err}
}

// Stat retrieves metadata for a file
func (b *Backend) Stat(ctx context.Context, key string) (*simpleshare.ObjectMeta, error) {
	filePath, err := b.path("stat", key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, b.fail("stat", key, err)
	}
	if info.IsDir() {
		return nil, b.fail("stat", key, iofs.ErrNotExist)
	}

	return &simpleshare.ObjectMeta{
		Key:         key,
		Size:        info.Size(),
		ContentType: detectContentType(filePath),
		UpdatedAt:   info.ModTime(),
	}, nil
}

// detectContentType guesses from the extension, then sniffs the first bytes.
func detectContentType(filePath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
		return ct
	}
	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}
	return contentType
}

// Open opens a file for reading. The returned body is an *os.File and
// supports seeking.
func (b *Backend) Open(ctx context.Context, key string) (*simpleshare.Object, error) {
	filePath, err := b.path("open", key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, b.fail("open", key, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, b.fail("open", key, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, b.fail("open", key, iofs.ErrNotExist)
	}

	return &simpleshare.Object{
		Body: file,
		Meta: simpleshare.ObjectMeta{
			Key:         key,
			Size:        info.Size(),
			ContentType: mime.TypeByExtension(filepath.Ext(key)),
			UpdatedAt:   info.ModTime(),
		},
	}, nil
}

// Create writes a new file, failing if it already exists. A partially
// written file is removed.
func (b *Backend) Create(ctx context.Context, key string, reader io.Reader) (int64, error) {
	filePath, err := b.path("create", key)
	if err != nil {
		return 0, err
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, b.fail("create", key, err)
	}

	n, err := io.Copy(file, reader)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filePath)
		return 0, b.fail("create", key, fmt.Errorf("failed to write file: %w", err))
	}
	return n, nil
}

// Put atomically replaces a file through a temporary file and rename.
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	filePath, err := b.path("put", key)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(filePath, data, 0644); err != nil {
		return b.fail("put", key, err)
	}
	return nil
}

// Rename moves a file without replacing an existing target. A hard link
// claims the target first; filesystems without hard links fall back to a
// checked rename.
func (b *Backend) Rename(ctx context.Context, from, to string) error {
	src, err := b.path("rename", from)
	if err != nil {
		return err
	}
	dst, err := b.path("rename", to)
	if err != nil {
		return err
	}

	if _, err := os.Lstat(src); err != nil {
		return b.fail("rename", from, err)
	}

	err = os.Link(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			os.Remove(dst)
			return b.fail("rename", from, err)
		}
		return nil
	case errors.Is(err, iofs.ErrExist):
		return b.fail("rename", to, err)
	}

	if _, err := os.Lstat(dst); err == nil {
		return b.fail("rename", to, iofs.ErrExist)
	} else if !errors.Is(err, iofs.ErrNotExist) {
		return b.fail("rename", to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return b.fail("rename", from, err)
	}
	return nil
}

// Delete removes a file
func (b *Backend) Delete(ctx context.Context, key string) error {
	filePath, err := b.path("delete", key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return b.fail("delete", key, err)
	}
	return nil
}

// List returns the names of all regular files in the storage root. Hidden
// files, such as in-flight temporary files, are skipped.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		return nil, b.fail("list", "", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		keys = append(keys, entry.Name())
	}
	return keys, nil
}
