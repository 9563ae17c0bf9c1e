package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/picsync/internal/client/client"
	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/registry"
	"github.com/dmitrijs2005/picsync/internal/logging"
)

// Driver consumes pending queue items one at a time, performs the transfer
// and merges server-assigned identities back into the registry. There is no
// automatic retry: a failed item stays in StatusError with its reason, and
// retrying means re-selecting and re-uploading.
type Driver struct {
	queue    *Queue
	client   client.Client
	registry *registry.Registry
	logger   logging.Logger
}

func NewDriver(q *Queue, apiClient client.Client, reg *registry.Registry, logger logging.Logger) *Driver {
	return &Driver{queue: q, client: apiClient, registry: reg, logger: logger}
}

// Run drains the queue's pending items. It stops early only on context
// cancellation; per-item failures never crash the queue.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := d.queue.claimNext()
		if item == nil {
			return nil
		}

		checksum := item.Asset.Checksum
		if err := d.uploadOne(ctx, item.Asset); err != nil {
			d.queue.finish(checksum, StatusError, err.Error())
			d.logger.Warn(ctx, "upload failed", "checksum", checksum, "error", err)
			continue
		}
		d.queue.finish(checksum, StatusSuccess, "")
	}
}

func (d *Driver) uploadOne(ctx context.Context, asset *models.DeviceAsset) error {
	f, err := os.Open(asset.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", asset.Path, err)
	}
	defer f.Close()

	res, err := d.client.Upload(ctx, &client.UploadRequest{
		FileName:   filepath.Base(asset.Path),
		Body:       f,
		Checksum:   asset.Checksum,
		Kind:       asset.Kind,
		CapturedAt: asset.CapturedAt,
		Duration:   asset.Duration,
		Favorite:   asset.Favorite,
		Archived:   asset.Archived,
	})
	if err != nil {
		return err
	}

	// Merge the new identity back so the registry flips the asset to
	// "exists" for every consumer holding the reference.
	updated, ok := d.registry.Get(asset.Checksum)
	if !ok {
		return nil
	}
	updated.Existence = models.ExistencePresent
	updated.RemoteID = res.RemoteID
	updated.RemoteDeletedAt = nil
	d.registry.Dispatch(registry.UpdateAsset{Asset: &updated})

	if res.Duplicate {
		d.logger.Debug(ctx, "server already held checksum", "checksum", asset.Checksum)
	}
	return nil
}
