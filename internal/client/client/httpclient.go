package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/picsync/internal/common"
)

// HTTPClient implements Client over the backend's JSON/multipart HTTP API.
// The access token obtained by Login is injected into every subsequent
// request by an authTransport wrapping the underlying RoundTripper.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu          sync.RWMutex
	accessToken string
}

// authTransport injects the current access token into outbound requests.
// It is the HTTP counterpart of a gRPC unary interceptor.
type authTransport struct {
	base  http.RoundTripper
	token func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := t.token(); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient constructs a client for the given base URL, e.g.
// "http://127.0.0.1:8080".
func NewHTTPClient(baseURL string) *HTTPClient {
	c := &HTTPClient{baseURL: baseURL}
	c.http = &http.Client{
		Transport: &authTransport{
			base:  http.DefaultTransport,
			token: c.currentToken,
		},
	}
	return c
}

func (c *HTTPClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *HTTPClient) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// errorBody is the JSON error envelope returned by the server.
type errorBody struct {
	Error string `json:"error"`
}

// checkStatus maps HTTP status codes to sentinel errors, attaching the
// server-provided reason when one is present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)
	reason := eb.Error
	if reason == "" {
		reason = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, reason)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrBadRequest, reason)
	default:
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, reason)
	}
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	in := map[string]string{"username": username, "password": password}
	return c.postJSON(ctx, "/api/v1/register", in, nil)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	in := map[string]string{"username": username, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.postJSON(ctx, "/api/v1/login", in, &out); err != nil {
		return err
	}
	c.setToken(out.AccessToken)
	return nil
}

// Logout forgets the access token; subsequent requests go out unauthenticated.
func (c *HTTPClient) Logout() {
	c.setToken("")
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *HTTPClient) CheckExists(ctx context.Context, checksum string) (*ExistsResult, error) {
	in := map[string]string{"checksum": checksum}
	var out struct {
		RemoteID  string     `json:"remote_id"`
		DeletedAt *time.Time `json:"deleted_at"`
	}
	if err := c.postJSON(ctx, "/api/v1/assets/exists", in, &out); err != nil {
		return nil, err
	}
	return &ExistsResult{RemoteID: out.RemoteID, RemoteDeletedAt: out.DeletedAt}, nil
}

func (c *HTTPClient) Upload(ctx context.Context, upload *UploadRequest) (*UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Stream the multipart body; large videos never sit in memory whole.
	go func() {
		err := writeUploadForm(mw, upload)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/assets", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out struct {
		RemoteID  string `json:"remote_id"`
		Duplicate bool   `json:"duplicate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &UploadResult{RemoteID: out.RemoteID, Duplicate: out.Duplicate}, nil
}

func writeUploadForm(mw *multipart.Writer, upload *UploadRequest) error {
	fields := map[string]string{
		"checksum":    upload.Checksum,
		"kind":        string(upload.Kind),
		"captured_at": upload.CapturedAt.UTC().Format(time.RFC3339),
		"duration_ms": strconv.FormatInt(upload.Duration.Milliseconds(), 10),
		"favorite":    strconv.FormatBool(upload.Favorite),
		"archived":    strconv.FormatBool(upload.Archived),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", upload.FileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, upload.Body)
	return err
}
