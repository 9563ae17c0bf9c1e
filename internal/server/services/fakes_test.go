package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/dbx"
	"github.com/dmitrijs2005/picsync/internal/server/models"
	"github.com/dmitrijs2005/picsync/internal/server/repositories/assets"
	"github.com/dmitrijs2005/picsync/internal/server/repositories/users"
)

// In-memory repository fakes backing the service tests.

type memUsers struct {
	mu      sync.Mutex
	byLogin map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{byLogin: map[string]*models.User{}} }

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byLogin[user.UserName]; ok {
		return nil, common.ErrorDuplicateLogin
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.byLogin[user.UserName] = user
	return user, nil
}

func (m *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type memAssets struct {
	mu    sync.Mutex
	byKey map[string]*models.Asset
}

func newMemAssets() *memAssets { return &memAssets{byKey: map[string]*models.Asset{}} }

func assetKey(userID, checksum string) string { return userID + "/" + checksum }

func (m *memAssets) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assetKey(asset.UserID, asset.Checksum)
	if _, ok := m.byKey[key]; ok {
		return nil, common.ErrorDuplicateChecksum
	}
	asset.ID = uuid.NewString()
	asset.CreatedAt = time.Now()
	m.byKey[key] = asset
	return asset, nil
}

func (m *memAssets) GetByChecksum(ctx context.Context, userID, checksum string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byKey[assetKey(userID, checksum)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type memManager struct {
	users  *memUsers
	assets *memAssets
}

func newMemManager() *memManager {
	return &memManager{users: newMemUsers(), assets: newMemAssets()}
}

func (m *memManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *memManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *memManager) Assets(db dbx.DBTX) assets.Repository                { return m.assets }

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStorage() *memStorage { return &memStorage{objects: map[string][]byte{}} }

func (m *memStorage) Put(ctx context.Context, key string, body io.Reader) error {
	if m.putErr != nil {
		return m.putErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
