package simpleshare

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidName indicates an id containing path traversal characters
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFound indicates a missing record or blob
	ErrNotFound = errors.New("not found")

	// ErrUnreadable indicates a sidecar that exists but could not be read
	ErrUnreadable = errors.New("record unreadable")

	// ErrMalformed indicates a sidecar that could not be parsed
	ErrMalformed = errors.New("record malformed")

	// ErrWriteFailed indicates a sidecar could not be written or removed
	ErrWriteFailed = errors.New("record write failed")

	// ErrConflict indicates a rename target that is already in use
	ErrConflict = errors.New("name already in use")

	// ErrAlreadyExists indicates an upload blob path that is already taken
	ErrAlreadyExists = errors.New("blob already exists")

	// ErrNameExhausted indicates the name generator kept producing taken names
	ErrNameExhausted = errors.New("no free name found")

	// ErrInvalidKind indicates an unknown or unsupported upload kind
	ErrInvalidKind = errors.New("invalid input type")

	// ErrNoFilename indicates an upload without a filename
	ErrNoFilename = errors.New("no filename specified")

	// ErrInvalidText indicates a text upload that is not valid UTF-8
	ErrInvalidText = errors.New("text is not valid UTF-8")

	// ErrInvalidURL indicates a stored redirect target that does not parse
	ErrInvalidURL = errors.New("invalid redirect target")

	// ErrIO indicates an unexpected storage failure
	ErrIO = errors.New("storage I/O error")

	// ErrObjectNotFound is returned by blob stores for missing keys
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists is returned by blob stores on exclusive create of an existing key
	ErrObjectExists = errors.New("object already exists")
)

// RecordError represents an error related to one shared item
type RecordError struct {
	ID  string
	Op  string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ioError marks err as an unexpected storage failure while keeping the cause
// reachable through errors.Is / errors.As.
func ioError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
