package simpleshare

import "context"

// Service is the main interface for sharing items
type Service interface {
	// Upload stores a new item under a freshly generated id
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)

	// Resolve looks up id for public serving. A resolved file holds an open
	// blob that the caller must Close.
	Resolve(ctx context.Context, id string) (*Resolved, error)

	// Delete removes an item and its blob
	Delete(ctx context.Context, id string) error

	// Rename moves an item to a new id, carrying its blob along
	Rename(ctx context.Context, from, to string) error

	// List returns all readable items, newest first
	List(ctx context.Context) ([]Item, error)

	// Get loads the record for id without opening its blob
	Get(ctx context.Context, id string) (*Record, error)
}
