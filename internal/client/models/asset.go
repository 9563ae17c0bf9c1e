// Package models defines client-side data models used by the picsync CLI.
package models

import "time"

// Kind classifies the media type of a device asset.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Existence is the reconciliation outcome for a device asset. A failed
// lookup leaves the asset ExistenceUnknown; it is never collapsed into
// "absent".
type Existence string

const (
	// ExistenceUnknown means the server has not been asked yet, or the
	// lookup failed. Unknown assets are picked up by the next
	// reconciliation pass.
	ExistenceUnknown Existence = "unknown"

	// ExistenceAbsent means the server confirmed it has no asset with
	// this checksum.
	ExistenceAbsent Existence = "absent"

	// ExistencePresent means the server already holds an asset with this
	// checksum (possibly trashed, see RemoteDeletedAt).
	ExistencePresent Existence = "present"
)

// DeviceAsset is one local file the user is considering for upload.
//
// Checksum is the hex SHA-1 over the full file contents and is the primary
// key of the registry: two files with identical bytes collapse to one entry.
type DeviceAsset struct {
	// Path points at the underlying file contents. It never changes after
	// ingestion.
	Path string

	// Checksum is the hex-encoded SHA-1 content digest.
	Checksum string

	Kind Kind

	// Width and Height are pixel dimensions, already corrected for EXIF
	// rotation.
	Width  int
	Height int

	// CapturedAt is the best-effort original capture timestamp: embedded
	// metadata first, then file modification time.
	CapturedAt time.Time

	// Size is the file size in bytes.
	Size int64

	// Duration is set for videos only.
	Duration time.Duration

	// Existence is the reconciliation state, see the Existence constants.
	Existence Existence

	// RemoteID is the server-assigned identity, set once reconciliation
	// finds the asset remotely or an upload succeeds. Empty means unknown
	// or confirmed absent.
	RemoteID string

	// RemoteDeletedAt is set when the server reports the asset exists but
	// sits in the trash.
	RemoteDeletedAt *time.Time

	// Preview is the ephemeral display handle derived from the file. The
	// registry owns it and releases it when the asset is removed.
	Preview *Preview

	// Upload flags carried on the multipart form.
	Favorite bool
	Archived bool
}

// HasRemote reports whether the asset is known to exist on the server.
func (a *DeviceAsset) HasRemote() bool {
	return a.RemoteID != ""
}
