// Package simpleshare provides the storage and resolution core of a small
// file, paste and link sharing service.
//
// Every shared item is identified by a short, human readable name (for
// example "BraveFox") and described by a JSON sidecar record stored next to
// its content blob:
//
//	<root>/<id>.info.json   metadata record
//	<root>/<id>.<ext>       content blob (files and text only)
//
// The Service interface exposes the upload, resolve, rename, delete and list
// operations. Blob stores (filesystem, memory, S3) are provided under the
// storage subpackages.
//
// Sidecar Format
//
// Records keep the legacy on-disk keys ("type", "filename",
// "actual_filename") and an RFC 2822 date. A record loaded from disk and saved
// again is written back byte for byte.
package simpleshare
