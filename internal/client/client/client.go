package client

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/picsync/internal/client/models"
)

// ExistsResult is the server's answer to a checksum existence lookup.
// A zero RemoteID means the checksum is confirmed absent.
type ExistsResult struct {
	RemoteID        string
	RemoteDeletedAt *time.Time
}

// UploadRequest carries one asset's payload and metadata to the server.
type UploadRequest struct {
	// FileName is the base name reported on the multipart form.
	FileName string

	// Body streams the file contents. The client consumes it fully.
	Body io.Reader

	Checksum   string
	Kind       models.Kind
	CapturedAt time.Time
	Duration   time.Duration
	Favorite   bool
	Archived   bool
}

// UploadResult is the server's answer to an upload. Duplicate is set when
// the server already held the checksum and no new object was stored.
type UploadResult struct {
	RemoteID  string
	Duplicate bool
}

// Client is the transport-agnostic contract to the picsync backend.
type Client interface {
	Close() error
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Logout()
	Ping(ctx context.Context) error
	CheckExists(ctx context.Context, checksum string) (*ExistsResult, error)
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
}
