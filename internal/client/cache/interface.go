// Package cache persists content checksums keyed by file identity so
// repeated scans of an unchanged tree skip re-digesting large files.
package cache

import "context"

// Repository is the local checksum cache. A hit requires path, size and
// mtime to all match; any change to the file invalidates the entry.
type Repository interface {
	// Lookup returns the cached checksum for the file identity, or ok=false.
	Lookup(ctx context.Context, path string, size int64, mtimeUnix int64) (checksum string, ok bool, err error)

	// Store upserts the checksum for the file identity.
	Store(ctx context.Context, path string, size int64, mtimeUnix int64, checksum string) error

	// Clear drops every cached entry.
	Clear(ctx context.Context) error
}
