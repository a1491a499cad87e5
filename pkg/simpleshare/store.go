package simpleshare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// RecordStore reads and writes metadata sidecars through a BlobStore.
type RecordStore struct {
	blobs BlobStore
}

// NewRecordStore creates a record store on top of blobs.
func NewRecordStore(blobs BlobStore) *RecordStore {
	return &RecordStore{blobs: blobs}
}

// Load reads the record for id. Failures wrap ErrNotFound, ErrUnreadable or
// ErrMalformed.
func (s *RecordStore) Load(ctx context.Context, id string) (*Record, error) {
	if err := ValidateName(id); err != nil {
		return nil, &RecordError{ID: id, Op: "load", Err: err}
	}

	obj, err := s.blobs.Open(ctx, SidecarKey(id))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, &RecordError{ID: id, Op: "load", Err: ErrNotFound}
	} else if err != nil {
		return nil, &RecordError{ID: id, Op: "load", Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, &RecordError{ID: id, Op: "load", Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}

	return decodeRecord(id, data)
}

func decodeRecord(id string, data []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &RecordError{ID: id, Op: "load", Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	if err := record.Validate(); err != nil {
		return nil, &RecordError{ID: id, Op: "load", Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	return &record, nil
}

// EncodeRecord serializes a record in the sidecar format: compact JSON with
// HTML characters left unescaped.
func EncodeRecord(record *Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Save creates or replaces the sidecar for id.
func (s *RecordStore) Save(ctx context.Context, id string, record *Record) error {
	if err := ValidateName(id); err != nil {
		return &RecordError{ID: id, Op: "save", Err: err}
	}
	if err := record.Validate(); err != nil {
		return &RecordError{ID: id, Op: "save", Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)}
	}

	data, err := EncodeRecord(record)
	if err != nil {
		return &RecordError{ID: id, Op: "save", Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)}
	}

	if err := s.blobs.Put(ctx, SidecarKey(id), data); err != nil {
		return &RecordError{ID: id, Op: "save", Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)}
	}
	return nil
}

// Remove deletes the sidecar for id. Removing a missing sidecar is an error.
func (s *RecordStore) Remove(ctx context.Context, id string) error {
	if err := ValidateName(id); err != nil {
		return &RecordError{ID: id, Op: "remove", Err: err}
	}
	if err := s.blobs.Delete(ctx, SidecarKey(id)); err != nil {
		return &RecordError{ID: id, Op: "remove", Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)}
	}
	return nil
}

// Exists reports whether a sidecar for id is present.
func (s *RecordStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ValidateName(id); err != nil {
		return false, &RecordError{ID: id, Op: "exists", Err: err}
	}
	_, err := s.blobs.Stat(ctx, SidecarKey(id))
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	} else if err != nil {
		return false, &RecordError{ID: id, Op: "exists", Err: ioError(err)}
	}
	return true, nil
}

// List loads every readable record, newest first. Sidecars that fail to
// load are logged and skipped.
func (s *RecordStore) List(ctx context.Context) ([]Item, error) {
	keys, err := s.blobs.List(ctx)
	if err != nil {
		return nil, ioError(err)
	}

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		id, ok := idFromSidecarKey(key)
		if !ok {
			continue
		}
		record, err := s.Load(ctx, id)
		if err != nil {
			slog.Warn("Skipping unreadable record", "key", key, "error", err)
			continue
		}
		items = append(items, Item{ID: id, Record: record})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Record.Date.Time, items[j].Record.Date.Time
		if a.Equal(b) {
			return items[i].ID < items[j].ID
		}
		return a.After(b)
	})
	return items, nil
}
