package simpleshare

import (
	"fmt"
	"strings"
)

const sidecarSuffix = ".info.json"

// ValidateName rejects ids that could escape the storage root. It must be
// applied to every externally supplied id before it reaches a blob store.
func ValidateName(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(id, `./\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return nil
}

// ValidateBlobName checks a stored blob name. Blob names carry an extension,
// so a dot is allowed, but never a separator or a leading dot.
func ValidateBlobName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: blob %q", ErrInvalidName, name)
	}
	return nil
}

// SidecarKey returns the storage key of the record for id.
func SidecarKey(id string) string {
	return id + sidecarSuffix
}

// idFromSidecarKey extracts the id from a storage key, reporting false for
// keys that are not sidecars.
func idFromSidecarKey(key string) (string, bool) {
	if !strings.HasSuffix(key, sidecarSuffix) {
		return "", false
	}
	id, _, _ := strings.Cut(key, ".")
	if id == "" {
		return "", false
	}
	return id, true
}

// BlobNameFor builds the blob name for a fresh upload from the generated id
// and the uploader supplied display name.
func BlobNameFor(id, displayName string) string {
	if ext := extensionOf(displayName); ext != "" {
		return id + "." + ext
	}
	return id
}
