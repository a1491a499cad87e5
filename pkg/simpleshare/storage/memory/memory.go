package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

const backendName = "memory"

type object struct {
	data      []byte
	updatedAt time.Time
}

// Backend is an in-memory implementation of the simpleshare.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
	}
}

func (b *Backend) fail(op, key string, err error) error {
	return &simpleshare.StorageError{Backend: backendName, Key: key, Op: op, Err: err}
}

func (b *Backend) check(op, key string) error {
	if err := simpleshare.ValidateBlobName(key); err != nil {
		return b.fail(op, key, err)
	}
	return nil
}

func (b *Backend) meta(key string, obj object) simpleshare.ObjectMeta {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return simpleshare.ObjectMeta{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: contentType,
		UpdatedAt:   obj.updatedAt,
	}
}

// Stat retrieves metadata for an object in memory
func (b *Backend) Stat(ctx context.Context, key string) (*simpleshare.ObjectMeta, error) {
	if err := b.check("stat", key); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, b.fail("stat", key, simpleshare.ErrObjectNotFound)
	}
	meta := b.meta(key, obj)
	return &meta, nil
}

// Open returns a seekable reader over a snapshot of the object
func (b *Backend) Open(ctx context.Context, key string) (*simpleshare.Object, error) {
	if err := b.check("open", key); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, b.fail("open", key, simpleshare.ErrObjectNotFound)
	}

	return &simpleshare.Object{
		Body: readSeekNopCloser{bytes.NewReader(obj.data)},
		Meta: b.meta(key, obj),
	}, nil
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// Create stores a new object, failing if the key is taken
func (b *Backend) Create(ctx context.Context, key string, reader io.Reader) (int64, error) {
	if err := b.check("create", key); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, b.fail("create", key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; exists {
		return 0, b.fail("create", key, simpleshare.ErrObjectExists)
	}
	b.objects[key] = object{data: data, updatedAt: time.Now().UTC()}
	return int64(len(data)), nil
}

// Put creates or replaces an object
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	if err := b.check("put", key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = object{data: bytes.Clone(data), updatedAt: time.Now().UTC()}
	return nil
}

// Rename moves an object without replacing an existing target
func (b *Backend) Rename(ctx context.Context, from, to string) error {
	if err := b.check("rename", from); err != nil {
		return err
	}
	if err := b.check("rename", to); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	obj, exists := b.objects[from]
	if !exists {
		return b.fail("rename", from, simpleshare.ErrObjectNotFound)
	}
	if _, taken := b.objects[to]; taken {
		return b.fail("rename", to, fmt.Errorf("%w: rename target", simpleshare.ErrObjectExists))
	}
	b.objects[to] = obj
	delete(b.objects, from)
	return nil
}

// Delete deletes an object
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.check("delete", key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; !exists {
		return b.fail("delete", key, simpleshare.ErrObjectNotFound)
	}

	delete(b.objects, key)
	return nil
}

// List returns all keys in lexical order
func (b *Backend) List(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
