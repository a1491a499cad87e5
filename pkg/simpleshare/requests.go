package simpleshare

import "io"

// UploadRequest contains parameters for storing a new item
type UploadRequest struct {
	// Kind is the raw type hint, "file" or "text"
	Kind string
	// Filename is the uploader supplied display name
	Filename string
	Body     io.Reader
}

// UploadResult describes a stored item
type UploadResult struct {
	ID   string
	Kind Kind
	// URL is the public link to the item
	URL string
}
