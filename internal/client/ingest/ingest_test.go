package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/scan"
	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// memCache is an in-memory cache.Repository for tests.
type memCache struct {
	entries map[string]string
	stores  int
}

func newMemCache() *memCache { return &memCache{entries: map[string]string{}} }

func cacheKey(path string, size, mtime int64) string {
	return fmt.Sprintf("%s|%d|%d", path, size, mtime)
}

func (m *memCache) Lookup(ctx context.Context, path string, size, mtimeUnix int64) (string, bool, error) {
	cs, ok := m.entries[cacheKey(path, size, mtimeUnix)]
	return cs, ok, nil
}

func (m *memCache) Store(ctx context.Context, path string, size, mtimeUnix int64, checksum string) error {
	m.stores++
	m.entries[cacheKey(path, size, mtimeUnix)] = checksum
	return nil
}

func (m *memCache) Clear(ctx context.Context) error {
	m.entries = map[string]string{}
	return nil
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func fileSHA1(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestIngest_ImageFallbackDimensions(t *testing.T) {
	dir := t.TempDir()
	previewDir := t.TempDir()
	path := writePNG(t, dir, "a.png", 12, 7)

	ing := New(previewDir, nil, testLogger())

	asset, err := ing.Ingest(context.Background(), path, "image/png")
	require.NoError(t, err)

	// PNGs carry no EXIF; dimensions come from the decoded header and the
	// capture time from mtime.
	assert.Equal(t, models.KindImage, asset.Kind)
	assert.Equal(t, 12, asset.Width)
	assert.Equal(t, 7, asset.Height)
	assert.Equal(t, fileSHA1(t, path), asset.Checksum)
	assert.False(t, asset.CapturedAt.IsZero())
	assert.Equal(t, models.ExistenceUnknown, asset.Existence)

	// Preview is a copy under previewDir keyed by checksum.
	require.NotNil(t, asset.Preview)
	assert.Equal(t, filepath.Join(previewDir, asset.Checksum+".png"), asset.Preview.Path)
	assert.False(t, asset.Preview.Released())
}

func TestIngest_IdenticalBytesSameChecksum(t *testing.T) {
	dir := t.TempDir()
	ing := New(t.TempDir(), nil, testLogger())

	p1 := writePNG(t, dir, "one.png", 4, 4)
	p2 := filepath.Join(dir, "two.png")
	b, err := os.ReadFile(p1)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p2, b, 0o600))

	a1, err := ing.Ingest(context.Background(), p1, "image/png")
	require.NoError(t, err)
	a2, err := ing.Ingest(context.Background(), p2, "image/png")
	require.NoError(t, err)

	assert.Equal(t, a1.Checksum, a2.Checksum)
}

func TestIngest_UnsupportedType(t *testing.T) {
	ing := New(t.TempDir(), nil, testLogger())

	_, err := ing.Ingest(context.Background(), "/tmp/whatever.txt", "text/plain")
	assert.ErrorIs(t, err, common.ErrorUnsupportedFileType)
}

func TestIngest_ChecksumCacheShortCircuitsDigest(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 4, 4)
	info, err := os.Stat(path)
	require.NoError(t, err)

	c := newMemCache()
	// Seed a sentinel value; if it comes back, the digest was skipped.
	require.NoError(t, c.Store(context.Background(), path, info.Size(), info.ModTime().Unix(), "cached-sentinel"))
	c.stores = 0

	ing := New(t.TempDir(), c, testLogger())
	asset, err := ing.Ingest(context.Background(), path, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "cached-sentinel", asset.Checksum)
	assert.Equal(t, 0, c.stores)
}

func TestIngest_ChecksumCachePopulatedOnMiss(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 4, 4)

	c := newMemCache()
	ing := New(t.TempDir(), c, testLogger())

	asset, err := ing.Ingest(context.Background(), path, "image/png")
	require.NoError(t, err)

	assert.Equal(t, 1, c.stores)

	info, err := os.Stat(path)
	require.NoError(t, err)
	cached, ok, err := c.Lookup(context.Background(), path, info.Size(), info.ModTime().Unix())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, asset.Checksum, cached)
}

func TestIngest_VideoUsesProbe(t *testing.T) {
	dir := t.TempDir()
	previewDir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not a real mp4"), 0o600))

	orig := runCommand
	defer func() { runCommand = orig }()

	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "ffprobe":
			return []byte(`{
				"format": {"duration": "12.5", "tags": {"creation_time": "2024-06-01T10:30:00.000000Z"}},
				"streams": [
					{"codec_type": "audio"},
					{"codec_type": "video", "width": 1920, "height": 1080}
				]
			}`), nil
		case "ffmpeg":
			// Last argument is the still destination.
			return nil, os.WriteFile(args[len(args)-1], []byte("frame"), 0o600)
		default:
			return nil, errors.New("unexpected command " + name)
		}
	}

	ing := New(previewDir, nil, testLogger())
	asset, err := ing.Ingest(context.Background(), path, "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, models.KindVideo, asset.Kind)
	assert.Equal(t, 1920, asset.Width)
	assert.Equal(t, 1080, asset.Height)
	assert.Equal(t, int64(12500), asset.Duration.Milliseconds())
	assert.Equal(t, 2024, asset.CapturedAt.Year())
	require.NotNil(t, asset.Preview)
	assert.Equal(t, filepath.Join(previewDir, asset.Checksum+".jpg"), asset.Preview.Path)
}

func TestIngest_VideoStillFailureIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o600))

	orig := runCommand
	defer func() { runCommand = orig }()

	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name == "ffprobe" {
			return []byte(`{"format": {"duration": "1.0"}, "streams": [{"codec_type": "video", "width": 10, "height": 10}]}`), nil
		}
		return nil, errors.New("ffmpeg exploded")
	}

	ing := New(t.TempDir(), nil, testLogger())
	asset, err := ing.Ingest(context.Background(), path, "video/mp4")
	require.NoError(t, err)
	assert.Nil(t, asset.Preview)
}

func TestIngestBatch_PerFileFailuresDoNotAbort(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png", 2, 2)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o600))

	ing := New(t.TempDir(), nil, testLogger())

	results := ing.IngestBatch(context.Background(), []scan.Candidate{
		{Path: bad, MIME: "image/png"},
		{Path: good, MIME: "image/png"},
	})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Asset)
	assert.NoError(t, results[1].Err)
	assert.NotNil(t, results[1].Asset)
}

func TestIngestBatch_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := New(t.TempDir(), nil, testLogger())
	results := ing.IngestBatch(ctx, []scan.Candidate{{Path: "/x", MIME: "image/png"}})
	assert.Empty(t, results)
}

func TestStillSeekOffset(t *testing.T) {
	assert.Equal(t, int64(100), stillSeekOffset(12*1000*1000*1000).Milliseconds())
	assert.Equal(t, int64(50), stillSeekOffset(100*1000*1000).Milliseconds())
	assert.Equal(t, int64(0), stillSeekOffset(0).Milliseconds())
}
