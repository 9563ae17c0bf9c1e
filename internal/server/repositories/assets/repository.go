package assets

import (
	"context"

	"github.com/dmitrijs2005/picsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	GetByChecksum(ctx context.Context, userID, checksum string) (*models.Asset, error)
}
