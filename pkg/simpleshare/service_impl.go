package simpleshare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tendant/simple-share/pkg/simpleshare/phrase"
)

// DefaultNameAttempts bounds the number of generated names tried per upload.
const DefaultNameAttempts = 16

// service implements the Service interface
type service struct {
	blobs        BlobStore
	records      *RecordStore
	generator    NameGenerator
	eventSink    EventSink
	externalURL  string
	nameAttempts int

	// mu serializes every operation that writes to the storage root.
	// It is never held while an upload body is read.
	mu sync.Mutex
	// pending holds names claimed by uploads whose record is not saved yet.
	pending map[string]struct{}
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithBlobStore sets the storage backend holding blobs and sidecars
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithGenerator sets the name generator used for new uploads
func WithGenerator(gen NameGenerator) Option {
	return func(s *service) {
		s.generator = gen
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithExternalURL sets the base URL prepended to ids in public links
func WithExternalURL(base string) Option {
	return func(s *service) {
		s.externalURL = base
	}
}

// WithNameAttempts sets how many generated names an upload may try
func WithNameAttempts(n int) Option {
	return func(s *service) {
		s.nameAttempts = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink:    NewNoopEventSink(),
		nameAttempts: DefaultNameAttempts,
		pending:      make(map[string]struct{}),
	}

	for _, option := range options {
		option(s)
	}

	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.nameAttempts <= 0 {
		return nil, fmt.Errorf("name attempts must be positive, got %d", s.nameAttempts)
	}
	if s.generator == nil {
		gen, err := phrase.NewDefault()
		if err != nil {
			return nil, fmt.Errorf("failed to load default word lists: %w", err)
		}
		s.generator = gen
	}
	s.records = NewRecordStore(s.blobs)

	return s, nil
}

// PublicURL returns the shareable link for id.
func (s *service) PublicURL(id string) string {
	return s.externalURL + id
}

// Upload operations

func (s *service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	if kind == KindURL {
		return nil, fmt.Errorf("%w: url uploads are submitted as text", ErrInvalidKind)
	}

	displayName := displayNameOf(req.Filename)
	if displayName == "" {
		return nil, ErrNoFilename
	}
	if req.Body == nil {
		req.Body = strings.NewReader("")
	}

	var text string
	if kind == KindText {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, ioError(err)
		}
		if !utf8.Valid(data) {
			return nil, ErrInvalidText
		}
		text = string(data)
	}

	s.mu.Lock()
	id, err := s.reserveName(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	defer s.release(id)
	blobName := BlobNameFor(id, displayName)

	var record *Record
	switch kind {
	case KindFile:
		if err := s.createBlob(ctx, id, blobName, req.Body); err != nil {
			return nil, err
		}
		record = NewFileRecord(displayName, blobName)
	case KindText:
		if looksLikeURL(text) {
			record = NewURLRecord(text)
			break
		}
		if err := s.createBlob(ctx, id, blobName, strings.NewReader(text)); err != nil {
			return nil, err
		}
		record = NewTextRecord(displayName, blobName)
	}

	s.mu.Lock()
	err = s.records.Save(ctx, id, record)
	s.mu.Unlock()
	if err != nil {
		if record.Kind.HasBlob() {
			if derr := s.blobs.Delete(ctx, blobName); derr != nil {
				slog.Error("Failed to remove blob after record write failure", "id", id, "blob", blobName, "error", derr)
			}
		}
		return nil, err
	}

	slog.Info("Item uploaded", "id", id, "kind", record.Kind, "filename", displayName)
	if err := s.eventSink.ItemUploaded(ctx, id, record); err != nil {
		slog.Warn("Event sink failed", "event", "uploaded", "id", id, "error", err)
	}

	return &UploadResult{
		ID:   id,
		Kind: record.Kind,
		URL:  s.PublicURL(id),
	}, nil
}

// reserveName draws names until one that is neither saved nor claimed is
// found, and claims it. The caller must hold s.mu and release the claim
// once the record is saved or the upload fails.
func (s *service) reserveName(ctx context.Context) (string, error) {
	for i := 0; i < s.nameAttempts; i++ {
		id := s.generator.Generate()
		if err := ValidateName(id); err != nil {
			slog.Warn("Generator produced an unusable name", "id", id)
			continue
		}
		if _, claimed := s.pending[id]; claimed {
			continue
		}
		exists, err := s.records.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			s.pending[id] = struct{}{}
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrNameExhausted, s.nameAttempts)
}

func (s *service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *service) createBlob(ctx context.Context, id, blobName string, body io.Reader) error {
	if _, err := s.blobs.Create(ctx, blobName, body); err != nil {
		if errors.Is(err, ErrObjectExists) {
			return &RecordError{ID: id, Op: "upload", Err: fmt.Errorf("%w: %s", ErrAlreadyExists, blobName)}
		}
		return &RecordError{ID: id, Op: "upload", Err: ioError(err)}
	}
	return nil
}

// looksLikeURL reports whether a text submission is really a link: a
// payload of at least eight bytes with "://" among the first eight.
func looksLikeURL(text string) bool {
	return len(text) >= 8 && strings.Contains(text[:8], "://")
}

// displayNameOf strips any client supplied directory from a filename.
func displayNameOf(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Resolve operations

func (s *service) Resolve(ctx context.Context, id string) (*Resolved, error) {
	resolved, err := s.resolve(ctx, id)

	kind := Kind("")
	if resolved != nil {
		kind = resolved.Kind
	}
	if serr := s.eventSink.ItemResolved(ctx, id, kind, err); serr != nil {
		slog.Warn("Event sink failed", "event", "resolved", "id", id, "error", serr)
	}
	return resolved, err
}

func (s *service) resolve(ctx context.Context, id string) (*Resolved, error) {
	if err := ValidateName(id); err != nil {
		return nil, &RecordError{ID: id, Op: "resolve", Err: err}
	}

	record, err := s.records.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("Failed to load record", "id", id, "error", err)
		}
		return nil, &RecordError{ID: id, Op: "resolve", Err: ErrNotFound}
	}

	resolved := &Resolved{ID: id, Kind: record.Kind, Record: record}

	switch record.Kind {
	case KindFile:
		obj, err := s.blobs.Open(ctx, record.Blob())
		if err != nil {
			if !errors.Is(err, ErrObjectNotFound) {
				slog.Error("Failed to open blob", "id", id, "blob", record.Blob(), "error", err)
				return nil, &RecordError{ID: id, Op: "resolve", Err: ioError(err)}
			}
			slog.Warn("Record points at a missing blob", "id", id, "blob", record.Blob())
			return nil, &RecordError{ID: id, Op: "resolve", Err: ErrNotFound}
		}
		resolved.Blob = obj
		resolved.DisplayName = record.Filename()

	case KindURL:
		target, err := redirectTarget(record.Target())
		if err != nil {
			slog.Warn("Stored redirect target is unusable", "id", id, "error", err)
			return nil, &RecordError{ID: id, Op: "resolve", Err: fmt.Errorf("%w: %v", ErrInvalidURL, err)}
		}
		resolved.RedirectURL = target

	case KindText:
		text, err := s.readText(ctx, record.Blob())
		if err != nil {
			slog.Warn("Failed to read text blob", "id", id, "blob", record.Blob(), "error", err)
			return nil, &RecordError{ID: id, Op: "resolve", Err: ErrNotFound}
		}
		resolved.Text = text
		resolved.DisplayName = record.Filename()
		resolved.PublicURL = s.PublicURL(id)

	default:
		return nil, &RecordError{ID: id, Op: "resolve", Err: ErrNotFound}
	}

	return resolved, nil
}

func (s *service) readText(ctx context.Context, blobName string) (string, error) {
	obj, err := s.blobs.Open(ctx, blobName)
	if err != nil {
		return "", err
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidText
	}
	return string(data), nil
}

// redirectTarget validates a stored url. Only absolute urls are followed.
func redirectTarget(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute url", trimmed)
	}
	return u.String(), nil
}

// Management operations

func (s *service) Get(ctx context.Context, id string) (*Record, error) {
	if err := ValidateName(id); err != nil {
		return nil, &RecordError{ID: id, Op: "get", Err: err}
	}
	return s.records.Load(ctx, id)
}

func (s *service) List(ctx context.Context) ([]Item, error) {
	return s.records.List(ctx)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ValidateName(id); err != nil {
		return &RecordError{ID: id, Op: "delete", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.records.Load(ctx, id)
	if err != nil {
		return err
	}

	if record.Kind.HasBlob() {
		err := s.blobs.Delete(ctx, record.Blob())
		switch {
		case errors.Is(err, ErrObjectNotFound):
			slog.Warn("Blob already missing during delete", "id", id, "blob", record.Blob())
		case err != nil:
			return &RecordError{ID: id, Op: "delete", Err: ioError(err)}
		}
	}

	if err := s.records.Remove(ctx, id); err != nil {
		return err
	}

	slog.Info("Item deleted", "id", id, "kind", record.Kind)
	if err := s.eventSink.ItemDeleted(ctx, id); err != nil {
		slog.Warn("Event sink failed", "event", "deleted", "id", id, "error", err)
	}
	return nil
}

func (s *service) Rename(ctx context.Context, from, to string) error {
	if err := ValidateName(from); err != nil {
		return &RecordError{ID: from, Op: "rename", Err: err}
	}
	if err := ValidateName(to); err != nil {
		return &RecordError{ID: to, Op: "rename", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.records.Load(ctx, from)
	if err != nil {
		return err
	}

	if from == to {
		return &RecordError{ID: to, Op: "rename", Err: ErrConflict}
	}
	if _, claimed := s.pending[to]; claimed {
		return &RecordError{ID: to, Op: "rename", Err: ErrConflict}
	}
	exists, err := s.records.Exists(ctx, to)
	if err != nil {
		return err
	}
	if exists {
		return &RecordError{ID: to, Op: "rename", Err: ErrConflict}
	}

	oldBlob := record.Blob()
	newBlob := ""
	if record.Kind.HasBlob() {
		newBlob = to + blobSuffix(oldBlob)
		if err := s.blobs.Rename(ctx, oldBlob, newBlob); err != nil {
			switch {
			case errors.Is(err, ErrObjectExists):
				return &RecordError{ID: to, Op: "rename", Err: fmt.Errorf("%w: blob %s", ErrConflict, newBlob)}
			case errors.Is(err, ErrObjectNotFound):
				slog.Warn("Record points at a missing blob", "id", from, "blob", oldBlob)
				return &RecordError{ID: from, Op: "rename", Err: ErrNotFound}
			default:
				return &RecordError{ID: from, Op: "rename", Err: ioError(err)}
			}
		}
		record.BlobName = &newBlob
	}

	if err := s.records.Save(ctx, to, record); err != nil {
		s.restoreBlob(ctx, from, newBlob, oldBlob)
		return err
	}

	if err := s.records.Remove(ctx, from); err != nil {
		// Undo so the item stays reachable under its old id.
		if rerr := s.records.Remove(ctx, to); rerr != nil {
			slog.Error("Failed to roll back new record", "id", to, "error", rerr)
		}
		s.restoreBlob(ctx, from, newBlob, oldBlob)
		return err
	}

	slog.Info("Item renamed", "from", from, "to", to)
	if err := s.eventSink.ItemRenamed(ctx, from, to); err != nil {
		slog.Warn("Event sink failed", "event", "renamed", "id", to, "error", err)
	}
	return nil
}

func (s *service) restoreBlob(ctx context.Context, id, current, original string) {
	if current == "" {
		return
	}
	if err := s.blobs.Rename(ctx, current, original); err != nil {
		slog.Error("Failed to restore blob after rename failure", "id", id, "blob", current, "error", err)
	}
}
