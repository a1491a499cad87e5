package simpleshare

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Kind is the closed set of shareable item types.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
	KindText Kind = "text"
)

// ParseKind converts an upload kind hint into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFile, KindURL, KindText:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindFile, KindURL, KindText:
		return true
	}
	return false
}

// HasBlob reports whether items of this kind own a content blob.
func (k Kind) HasBlob() bool {
	switch k {
	case KindFile, KindText:
		return true
	case KindURL:
		return false
	}
	return false
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !Kind(s).IsValid() {
		return fmt.Errorf("unknown item type %q", s)
	}
	*k = Kind(s)
	return nil
}

// RFC2822Layout is the layout used for newly created records.
const RFC2822Layout = "Mon, 02 Jan 2006 15:04:05 -0700"

// RFC2822Time is a timestamp serialized as RFC 2822 text. The text it was
// parsed from is retained so that re-serializing a loaded record reproduces
// the original string exactly.
type RFC2822Time struct {
	time.Time
	raw string
}

// NewRFC2822Time wraps t, truncated to whole seconds.
func NewRFC2822Time(t time.Time) RFC2822Time {
	return RFC2822Time{Time: t.Truncate(time.Second)}
}

// ParseRFC2822 parses an RFC 2822 date.
func ParseRFC2822(s string) (RFC2822Time, error) {
	t, err := mail.ParseDate(s)
	if err != nil {
		return RFC2822Time{}, err
	}
	return RFC2822Time{Time: t, raw: s}, nil
}

func (t RFC2822Time) String() string {
	if t.raw != "" {
		return t.raw
	}
	return t.Time.Format(RFC2822Layout)
}

func (t RFC2822Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *RFC2822Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRFC2822(s)
	if err != nil {
		return fmt.Errorf("invalid RFC 2822 date %q: %w", s, err)
	}
	*t = parsed
	return nil
}

// Record is the metadata sidecar describing one shared item. The item's id
// is not part of the record; it is the stem of the sidecar filename.
type Record struct {
	Date        RFC2822Time `json:"date"`
	Kind        Kind        `json:"type"`
	URL         *string     `json:"url"`
	DisplayName *string     `json:"filename"`
	BlobName    *string     `json:"actual_filename"`
}

// NewFileRecord creates a record for an uploaded file.
func NewFileRecord(displayName, blobName string) *Record {
	return &Record{
		Date:        NewRFC2822Time(time.Now().UTC()),
		Kind:        KindFile,
		DisplayName: &displayName,
		BlobName:    &blobName,
	}
}

// NewTextRecord creates a record for an uploaded text paste.
func NewTextRecord(displayName, blobName string) *Record {
	return &Record{
		Date:        NewRFC2822Time(time.Now().UTC()),
		Kind:        KindText,
		DisplayName: &displayName,
		BlobName:    &blobName,
	}
}

// NewURLRecord creates a record for a shortened link.
func NewURLRecord(target string) *Record {
	return &Record{
		Date: NewRFC2822Time(time.Now().UTC()),
		Kind: KindURL,
		URL:  &target,
	}
}

// Validate checks that the kind specific fields are present.
func (r *Record) Validate() error {
	switch r.Kind {
	case KindFile, KindText:
		if r.BlobName == nil || *r.BlobName == "" {
			return fmt.Errorf("%s record without actual_filename", r.Kind)
		}
		if r.DisplayName == nil {
			return fmt.Errorf("%s record without filename", r.Kind)
		}
		if err := ValidateBlobName(*r.BlobName); err != nil {
			return err
		}
	case KindURL:
		if r.URL == nil {
			return fmt.Errorf("url record without url")
		}
	default:
		return fmt.Errorf("unknown item type %q", r.Kind)
	}
	return nil
}

// Blob returns the blob name, or "" for kinds without a blob.
func (r *Record) Blob() string {
	if r.BlobName == nil {
		return ""
	}
	return *r.BlobName
}

// Filename returns the uploader supplied display name, or "".
func (r *Record) Filename() string {
	if r.DisplayName == nil {
		return ""
	}
	return *r.DisplayName
}

// Target returns the redirect target of a url record, or "".
func (r *Record) Target() string {
	if r.URL == nil {
		return ""
	}
	return *r.URL
}

// Item pairs a record with its public id.
type Item struct {
	ID     string  `json:"name"`
	Record *Record `json:"meta"`
}

// Resolved is the outcome of resolving an id. Exactly one of the kind
// specific fields is populated, selected by Kind.
type Resolved struct {
	ID     string
	Kind   Kind
	Record *Record

	// KindFile: the opened blob. The caller must close Blob.Body.
	Blob        *Object
	DisplayName string

	// KindURL
	RedirectURL string

	// KindText
	Text      string
	PublicURL string
}

// Close releases the blob held by a resolved file, if any.
func (r *Resolved) Close() error {
	if r == nil || r.Blob == nil || r.Blob.Body == nil {
		return nil
	}
	return r.Blob.Body.Close()
}

// extensionOf returns the extension of a display name: the segment after
// its last ".", or "" when there is none.
func extensionOf(displayName string) string {
	i := strings.LastIndex(displayName, ".")
	if i < 0 {
		return ""
	}
	ext := displayName[i+1:]
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}

// blobSuffix returns the part of a blob name starting at its first ".",
// including the dot, or "" when the blob has no extension.
func blobSuffix(blobName string) string {
	i := strings.Index(blobName, ".")
	if i < 0 {
		return ""
	}
	return blobName[i:]
}
