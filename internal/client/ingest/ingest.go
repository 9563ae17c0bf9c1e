// Package ingest turns raw local files into DeviceAssets: content checksum,
// dimensions, capture timestamp and an ephemeral preview handle.
//
// Batches are processed one file at a time so a caller can keep its
// interactive loop responsive by running IngestBatch on its own goroutine;
// cancellation is honored between files. Preview resources allocated here
// are not freed by this stage — ownership transfers to the registry.
package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/picsync/internal/client/cache"
	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/scan"
	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/filex"
	"github.com/dmitrijs2005/picsync/internal/logging"
)

// Ingestor produces DeviceAssets from candidate files. The checksum cache
// is optional; without it every file is digested on every scan.
type Ingestor struct {
	previewDir string
	cache      cache.Repository
	logger     logging.Logger
}

func New(previewDir string, cacheRepo cache.Repository, logger logging.Logger) *Ingestor {
	return &Ingestor{previewDir: previewDir, cache: cacheRepo, logger: logger}
}

// Result pairs a candidate with its ingestion outcome. A per-file error
// never aborts the rest of the batch.
type Result struct {
	Candidate scan.Candidate
	Asset     *models.DeviceAsset
	Err       error
}

// IngestBatch processes candidates sequentially, stopping only on context
// cancellation. Files that fail are reported in their Result and skipped.
func (i *Ingestor) IngestBatch(ctx context.Context, candidates []scan.Candidate) []Result {
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		asset, err := i.Ingest(ctx, c.Path, c.MIME)
		if err != nil {
			i.logger.Warn(ctx, "ingestion failed", "path", c.Path, "error", err)
		}
		out = append(out, Result{Candidate: c, Asset: asset, Err: err})
	}
	return out
}

// Ingest produces a DeviceAsset for a single file. Unsupported MIME types
// fail fast with common.ErrorUnsupportedFileType.
func (i *Ingestor) Ingest(ctx context.Context, path, mime string) (*models.DeviceAsset, error) {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return i.ingestImage(ctx, path)
	case strings.HasPrefix(mime, "video/"):
		return i.ingestVideo(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrorUnsupportedFileType, mime)
	}
}

func (i *Ingestor) ingestImage(ctx context.Context, path string) (*models.DeviceAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	checksum, err := i.checksum(ctx, path, info.Size(), info.ModTime().Unix())
	if err != nil {
		return nil, err
	}

	asset := &models.DeviceAsset{
		Path:      path,
		Checksum:  checksum,
		Kind:      models.KindImage,
		Size:      info.Size(),
		Existence: models.ExistenceUnknown,
	}

	// Structured metadata first; decode-based dimensions as the fallback.
	meta, exifErr := extractImageMeta(path)
	if exifErr == nil && meta.Width > 0 && meta.Height > 0 {
		asset.Width, asset.Height = meta.Width, meta.Height
		asset.CapturedAt = meta.CapturedAt
	} else {
		w, h, decErr := decodeDimensions(path)
		if decErr != nil {
			if exifErr != nil {
				return nil, fmt.Errorf("extract image metadata: %w", errors.Join(exifErr, decErr))
			}
			return nil, fmt.Errorf("extract image metadata: %w", decErr)
		}
		asset.Width, asset.Height = w, h
		asset.CapturedAt = info.ModTime()
	}
	if asset.CapturedAt.IsZero() {
		asset.CapturedAt = info.ModTime()
	}

	preview, err := i.imagePreview(path, checksum)
	if err != nil {
		return nil, err
	}
	asset.Preview = preview

	return asset, nil
}

func (i *Ingestor) ingestVideo(ctx context.Context, path string) (*models.DeviceAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	checksum, err := i.checksum(ctx, path, info.Size(), info.ModTime().Unix())
	if err != nil {
		return nil, err
	}

	probe, err := probeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe video %s: %w", path, err)
	}

	capturedAt := probe.CreatedAt
	if capturedAt.IsZero() {
		capturedAt = info.ModTime()
	}

	asset := &models.DeviceAsset{
		Path:       path,
		Checksum:   checksum,
		Kind:       models.KindVideo,
		Width:      probe.Width,
		Height:     probe.Height,
		CapturedAt: capturedAt,
		Size:       info.Size(),
		Duration:   probe.Duration,
		Existence:  models.ExistenceUnknown,
	}

	// A missing still frame degrades the display, nothing else.
	stillPath := filepath.Join(i.previewDir, checksum+".jpg")
	if err := extractStill(ctx, path, stillPath, probe.Duration); err != nil {
		i.logger.Warn(ctx, "failed to extract video still", "path", path, "error", err)
	} else {
		asset.Preview = models.NewPreview(stillPath)
	}

	return asset, nil
}

// imagePreview copies the original into the preview directory; the copy is
// the display handle released when the asset leaves the registry.
func (i *Ingestor) imagePreview(path, checksum string) (*models.Preview, error) {
	dst := filepath.Join(i.previewDir, checksum+filepath.Ext(path))
	if err := filex.CopyFile(path, dst); err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	return models.NewPreview(dst), nil
}

// checksum returns the hex SHA-1 of the file contents, consulting the cache
// first. Cache failures are logged and ignored; the digest is the source of
// truth.
func (i *Ingestor) checksum(ctx context.Context, path string, size, mtimeUnix int64) (string, error) {
	if i.cache != nil {
		if cached, ok, err := i.cache.Lookup(ctx, path, size, mtimeUnix); err != nil {
			i.logger.Warn(ctx, "checksum cache lookup failed", "path", path, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	if i.cache != nil {
		if err := i.cache.Store(ctx, path, size, mtimeUnix, sum); err != nil {
			i.logger.Warn(ctx, "checksum cache store failed", "path", path, "error", err)
		}
	}
	return sum, nil
}
