package simpleshare

import (
	"context"
	"io"
	"time"
)

// BlobStore is the flat key/value storage underneath the record store. Keys
// are plain file names inside a single storage root.
type BlobStore interface {
	// Stat returns metadata for key, or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (*ObjectMeta, error)

	// Open opens key for reading, or returns ErrObjectNotFound.
	Open(ctx context.Context, key string) (*Object, error)

	// Create writes a new key from reader and fails with ErrObjectExists if
	// the key is already present. It returns the number of bytes written.
	Create(ctx context.Context, key string, reader io.Reader) (int64, error)

	// Put atomically creates or replaces key with data.
	Put(ctx context.Context, key string, data []byte) error

	// Rename moves from to to, replacing nothing: it fails with
	// ErrObjectExists if to is present and ErrObjectNotFound if from is missing.
	Rename(ctx context.Context, from, to string) error

	// Delete removes key, or returns ErrObjectNotFound.
	Delete(ctx context.Context, key string) error

	// List returns every key in the store.
	List(ctx context.Context) ([]string, error)
}

// ObjectMeta contains metadata about a stored key
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Object is an opened blob. Body implements io.ReadSeeker when the backend
// supports random access.
type Object struct {
	Body io.ReadCloser
	Meta ObjectMeta
}

// EventSink receives notifications about completed operations
type EventSink interface {
	// ItemUploaded is fired after an upload is stored
	ItemUploaded(ctx context.Context, id string, record *Record) error

	// ItemResolved is fired after a public lookup, successful or not
	ItemResolved(ctx context.Context, id string, kind Kind, err error) error

	// ItemDeleted is fired after an item is deleted
	ItemDeleted(ctx context.Context, id string) error

	// ItemRenamed is fired after an item is renamed
	ItemRenamed(ctx context.Context, from, to string) error
}

// NameGenerator produces candidate ids for new uploads. Candidates are not
// guaranteed to be unique; the caller checks for collisions.
type NameGenerator interface {
	Generate() string
}
