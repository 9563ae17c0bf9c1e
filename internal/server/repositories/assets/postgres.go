package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/dbx"
	"github.com/dmitrijs2005/picsync/internal/server/models"
)

// pg error code for unique constraint violations
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {

	query :=
		`INSERT INTO assets (user_id, checksum, kind, file_name, storage_key,
		                     size, captured_at, duration_ms, favorite, archived)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		asset.UserID, asset.Checksum, asset.Kind, asset.FileName, asset.StorageKey,
		asset.Size, asset.CapturedAt, asset.DurationMS, asset.Favorite, asset.Archived,
	).Scan(&asset.ID, &asset.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorDuplicateChecksum
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}

func (r *PostgresRepository) GetByChecksum(ctx context.Context, userID, checksum string) (*models.Asset, error) {
	query :=
		`SELECT id, user_id, checksum, kind, file_name, storage_key,
		        size, captured_at, duration_ms, favorite, archived, created_at, deleted_at
		 FROM assets
		 WHERE user_id = $1 AND checksum = $2
		 `

	asset := &models.Asset{}
	err := r.db.QueryRowContext(ctx, query, userID, checksum).Scan(
		&asset.ID, &asset.UserID, &asset.Checksum, &asset.Kind, &asset.FileName, &asset.StorageKey,
		&asset.Size, &asset.CapturedAt, &asset.DurationMS, &asset.Favorite, &asset.Archived,
		&asset.CreatedAt, &asset.DeletedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}
