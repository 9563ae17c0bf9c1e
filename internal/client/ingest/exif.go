package ingest

import (
	"fmt"
	"image"
	"os"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// Register maker note parsers for better camera support.
	exif.RegisterParsers(mknote.All...)
}

// imageMeta is the subset of EXIF data the pipeline cares about.
type imageMeta struct {
	Width      int
	Height     int
	CapturedAt time.Time
}

// extractImageMeta reads EXIF dimensions and the original capture time.
// Dimensions are swapped for rotated orientations (EXIF values 5 through 8)
// so Width/Height describe the image as displayed.
func extractImageMeta(path string) (*imageMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode exif: %w", err)
	}

	meta := &imageMeta{}

	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.Width = v
		}
	}
	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.Height = v
		}
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 5 {
			meta.Width, meta.Height = meta.Height, meta.Width
		}
	}

	if dt, err := x.DateTime(); err == nil {
		meta.CapturedAt = dt
	}

	return meta, nil
}

// decodeDimensions reads natural pixel dimensions by decoding the image
// header. Used when EXIF is missing or carries no usable dimensions.
func decodeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
