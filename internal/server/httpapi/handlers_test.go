package httpapi

import (
	"bytes"
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/dbx"
	"github.com/dmitrijs2005/picsync/internal/logging"
	"github.com/dmitrijs2005/picsync/internal/server/config"
	"github.com/dmitrijs2005/picsync/internal/server/models"
	"github.com/dmitrijs2005/picsync/internal/server/repositories/assets"
	"github.com/dmitrijs2005/picsync/internal/server/repositories/users"
	"github.com/dmitrijs2005/picsync/internal/server/services"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// In-memory repository fakes; the API tests run the full middleware and
// handler stack against them.

type memUsers struct {
	mu      sync.Mutex
	byLogin map[string]*models.User
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byLogin[user.UserName]; ok {
		return nil, common.ErrorDuplicateLogin
	}
	user.ID = uuid.NewString()
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

func (m *memAssets) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := asset.UserID + "/" + asset.Checksum
	if _, ok := m.byKey[key]; ok {
		return nil, common.ErrorDuplicateChecksum
	}
	asset.ID = uuid.NewString()
	m.byKey[key] = asset
	return asset, nil
}

func (m *memAssets) GetByChecksum(ctx context.Context, userID, checksum string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byKey[userID+"/"+checksum]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type memManager struct {
	users  *memUsers
	assets *memAssets
}

func (m *memManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *memManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *memManager) Assets(db dbx.DBTX) assets.Repository                { return m.assets }

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStorage) Put(ctx context.Context, key string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "api-test-secret"
	cfg.AccessTokenValidityDuration = time.Hour

	m := &memManager{
		users:  &memUsers{byLogin: map[string]*models.User{}},
		assets: &memAssets{byKey: map[string]*models.Asset{}},
	}
	store := &memStorage{objects: map[string][]byte{}}

	h := NewHandler(
		services.NewUserService(nil, m, cfg),
		services.NewAssetService(nil, m, store),
		testLogger(),
	)
	srv := httptest.NewServer(NewRouter(h, []byte(cfg.SecretKey), testLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func obtainToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/v1/register", "", map[string]string{
		"username": "alice", "password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/login", "", map[string]string{
		"username": "alice", "password": "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	obtainToken(t, srv)

	// Duplicate login is a client error, not a crash.
	resp := postJSON(t, srv.URL+"/api/v1/register", "", map[string]string{
		"username": "alice", "password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPing_Public(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExists_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/assets/exists", "", map[string]string{"checksum": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/assets/exists", "garbage-token", map[string]string{"checksum": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func uploadMultipart(t *testing.T, srv *httptest.Server, token, checksum, content string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("checksum", checksum))
	require.NoError(t, mw.WriteField("kind", "image"))
	require.NoError(t, mw.WriteField("captured_at", "2024-06-01T10:00:00Z"))
	part, err := mw.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/assets", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadAndExistsFlow(t *testing.T) {
	srv := newTestServer(t)
	token := obtainToken(t, srv)

	content := "image bytes"
	sum := sha1.Sum([]byte(content))
	checksum := hex.EncodeToString(sum[:])

	// Before the upload the checksum is unknown.
	resp := postJSON(t, srv.URL+"/api/v1/assets/exists", token, map[string]string{"checksum": checksum})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exists struct {
		RemoteID  string     `json:"remote_id"`
		DeletedAt *time.Time `json:"deleted_at"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exists))
	assert.Empty(t, exists.RemoteID)

	// First upload creates the asset.
	resp = uploadMultipart(t, srv, token, checksum, content)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var uploaded struct {
		RemoteID  string `json:"remote_id"`
		Duplicate bool   `json:"duplicate"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	require.NotEmpty(t, uploaded.RemoteID)
	assert.False(t, uploaded.Duplicate)

	// Re-uploading the same bytes is answered with the stored asset.
	resp = uploadMultipart(t, srv, token, checksum, content)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again struct {
		RemoteID  string `json:"remote_id"`
		Duplicate bool   `json:"duplicate"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&again))
	assert.True(t, again.Duplicate)
	assert.Equal(t, uploaded.RemoteID, again.RemoteID)

	// And the existence lookup now resolves.
	resp = postJSON(t, srv.URL+"/api/v1/assets/exists", token, map[string]string{"checksum": checksum})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exists))
	assert.Equal(t, uploaded.RemoteID, exists.RemoteID)
}

func TestUpload_ChecksumMismatch(t *testing.T) {
	srv := newTestServer(t)
	token := obtainToken(t, srv)

	resp := uploadMultipart(t, srv, token, "0000000000000000000000000000000000000000", "content")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUpload_MissingFields(t *testing.T) {
	srv := newTestServer(t)
	token := obtainToken(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", "image"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/assets", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
