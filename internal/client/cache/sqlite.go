package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/picsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Lookup(ctx context.Context, path string, size int64, mtimeUnix int64) (string, bool, error) {
	var checksum string
	err := r.db.QueryRowContext(ctx, `
		SELECT checksum FROM scan_cache
		WHERE path = ? AND size = ? AND mtime_unix = ?
	`, path, size, mtimeUnix).Scan(&checksum)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up scan_cache[%s]: %w", path, err)
	}
	return checksum, true, nil
}

func (r *SQLiteRepository) Store(ctx context.Context, path string, size int64, mtimeUnix int64, checksum string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_cache (path, size, mtime_unix, checksum) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mtime_unix = excluded.mtime_unix,
			checksum = excluded.checksum
	`, path, size, mtimeUnix, checksum)
	if err != nil {
		return fmt.Errorf("failed to store scan_cache[%s]: %w", path, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scan_cache`)
	if err != nil {
		return fmt.Errorf("failed to clear scan_cache: %w", err)
	}
	return nil
}
