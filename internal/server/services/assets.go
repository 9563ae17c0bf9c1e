package services

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/server/models"
	"github.com/dmitrijs2005/picsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/picsync/internal/server/storage"
)

// ObjectStorage is what AssetService needs from the media backend.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}

// AssetUpload carries the client-declared metadata of an incoming file.
type AssetUpload struct {
	FileName   string
	Checksum   string
	Kind       string
	CapturedAt time.Time
	DurationMS int64
	Favorite   bool
	Archived   bool
}

// AssetService answers checksum existence lookups and ingests uploads.
type AssetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     ObjectStorage
}

func NewAssetService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStorage) *AssetService {
	return &AssetService{db: db, repomanager: m, storage: store}
}

// CheckExists reports whether the user already owns an asset with the given
// checksum. Returns (nil, nil) for an unknown checksum.
func (s *AssetService) CheckExists(ctx context.Context, userID, checksum string) (*models.Asset, error) {
	repo := s.repomanager.Assets(s.db)
	asset, err := repo.GetByChecksum(ctx, userID, strings.ToLower(checksum))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return asset, nil
}

// Upload stores the file body and records the asset. The body is digested
// while spooling; a digest that does not match the declared checksum rejects
// the upload before anything reaches object storage. When the checksum is
// already owned by the user, the existing asset is returned with
// duplicate=true and no new object is stored.
func (s *AssetService) Upload(ctx context.Context, userID string, up *AssetUpload, body io.Reader) (*models.Asset, bool, error) {
	checksum := strings.ToLower(up.Checksum)

	repo := s.repomanager.Assets(s.db)

	if existing, err := repo.GetByChecksum(ctx, userID, checksum); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	spool, digest, err := s.spool(body)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	if digest != checksum {
		return nil, false, fmt.Errorf("%w: declared %s, got %s", common.ErrorChecksumMismatch, checksum, digest)
	}

	size, err := spool.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, false, err
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return nil, false, err
	}

	key := storage.RandomStorageKey()
	if err := s.storage.Put(ctx, key, spool); err != nil {
		return nil, false, fmt.Errorf("error storing object: %w", err)
	}

	asset := &models.Asset{
		UserID:     userID,
		Checksum:   checksum,
		Kind:       up.Kind,
		FileName:   up.FileName,
		StorageKey: key,
		Size:       size,
		CapturedAt: up.CapturedAt,
		DurationMS: up.DurationMS,
		Favorite:   up.Favorite,
		Archived:   up.Archived,
	}

	created, err := repo.Create(ctx, asset)
	if err != nil {
		// Lost a race with a concurrent upload of the same bytes. The other
		// object wins; drop ours and answer with the stored row.
		if errors.Is(err, common.ErrorDuplicateChecksum) {
			if derr := s.storage.Delete(ctx, key); derr != nil {
				return nil, false, derr
			}
			existing, gerr := repo.GetByChecksum(ctx, userID, checksum)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, true, nil
		}
		return nil, false, err
	}

	return created, false, nil
}

// spool copies body to a temp file while computing its hex SHA-1.
func (s *AssetService) spool(body io.Reader) (*os.File, string, error) {
	f, err := os.CreateTemp("", "picsync-upload-*")
	if err != nil {
		return nil, "", err
	}

	h := sha1.New()
	if _, err := io.Copy(f, io.TeeReader(body, h)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, "", fmt.Errorf("error spooling upload: %w", err)
	}

	return f, hex.EncodeToString(h.Sum(nil)), nil
}
