package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/picsync/internal/client/client"
	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/registry"
	"github.com/dmitrijs2005/picsync/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClient implements client.Client with a programmable existence check.
type fakeClient struct {
	checkExists func(ctx context.Context, checksum string) (*client.ExistsResult, error)

	mu       sync.Mutex
	calls    map[string]int
	inFlight int64
	maxSeen  int64
}

func newFakeClient(fn func(ctx context.Context, checksum string) (*client.ExistsResult, error)) *fakeClient {
	return &fakeClient{checkExists: fn, calls: make(map[string]int)}
}

func (f *fakeClient) CheckExists(ctx context.Context, checksum string) (*client.ExistsResult, error) {
	f.mu.Lock()
	f.calls[checksum]++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	res, err := f.checkExists(ctx, checksum)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return res, err
}

func (f *fakeClient) Close() error { return nil }
func (f *fakeClient) Register(ctx context.Context, username, password string) error {
	return nil
}
func (f *fakeClient) Login(ctx context.Context, username, password string) error { return nil }
func (f *fakeClient) Logout()                                                    {}
func (f *fakeClient) Ping(ctx context.Context) error                             { return nil }
func (f *fakeClient) Upload(ctx context.Context, req *client.UploadRequest) (*client.UploadResult, error) {
	return nil, nil
}

func seedRegistry(t *testing.T, n int) *registry.Registry {
	t.Helper()
	reg := registry.New(testLogger())
	var assets []*models.DeviceAsset
	for i := 0; i < n; i++ {
		assets = append(assets, &models.DeviceAsset{
			Checksum:   fmt.Sprintf("cs-%03d", i),
			Kind:       models.KindImage,
			CapturedAt: time.Unix(int64(i), 0),
			Existence:  models.ExistenceUnknown,
		})
	}
	reg.Dispatch(registry.AddAssets{Assets: assets})
	return reg
}

func TestRun_VisitsEachUnknownExactlyOnce(t *testing.T) {
	const total = 37
	const poolSize = 10

	reg := seedRegistry(t, total)
	defer reg.Close()

	fc := newFakeClient(func(ctx context.Context, checksum string) (*client.ExistsResult, error) {
		time.Sleep(time.Millisecond) // force overlap between workers
		if checksum == "cs-000" {
			return &client.ExistsResult{RemoteID: "srv-0"}, nil
		}
		return &client.ExistsResult{}, nil
	})

	p := NewWithSize(fc, reg, testLogger(), poolSize)
	visited := p.Run(context.Background())

	assert.Equal(t, total, visited)
	assert.Empty(t, reg.UncheckedChecksums())

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Len(t, fc.calls, total)
	for cs, n := range fc.calls {
		assert.Equal(t, 1, n, "checksum %s looked up more than once", cs)
	}
	assert.LessOrEqual(t, fc.maxSeen, int64(poolSize))

	present, _ := reg.Get("cs-000")
	assert.Equal(t, models.ExistencePresent, present.Existence)
	assert.Equal(t, "srv-0", present.RemoteID)

	absent, _ := reg.Get("cs-001")
	assert.Equal(t, models.ExistenceAbsent, absent.Existence)
}

func TestRun_FailedLookupStaysUnknown(t *testing.T) {
	reg := seedRegistry(t, 2)
	defer reg.Close()

	fc := newFakeClient(func(ctx context.Context, checksum string) (*client.ExistsResult, error) {
		if checksum == "cs-000" {
			return nil, fmt.Errorf("server unavailable")
		}
		return &client.ExistsResult{}, nil
	})

	p := NewWithSize(fc, reg, testLogger(), 2)
	visited := p.Run(context.Background())

	assert.Equal(t, 2, visited)

	// The failure is never collapsed into absence; the asset is retried on
	// the next pass.
	failed, _ := reg.Get("cs-000")
	assert.Equal(t, models.ExistenceUnknown, failed.Existence)
	assert.Equal(t, []string{"cs-000"}, reg.UncheckedChecksums())

	// Retries happened before giving up.
	fc.mu.Lock()
	assert.Equal(t, 3, fc.calls["cs-000"])
	fc.mu.Unlock()
}

func TestRun_SecondTriggerCoalesces(t *testing.T) {
	reg := seedRegistry(t, 5)
	defer reg.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	fc := newFakeClient(func(ctx context.Context, checksum string) (*client.ExistsResult, error) {
		once.Do(func() { close(started) })
		<-release
		return &client.ExistsResult{}, nil
	})

	p := NewWithSize(fc, reg, testLogger(), 2)

	done := make(chan int)
	go func() { done <- p.Run(context.Background()) }()

	<-started

	// A trigger arriving mid-pass must not start a second concurrent pass.
	assert.Equal(t, 0, p.Run(context.Background()))

	close(release)

	visited := <-done
	require.Equal(t, 5, visited)
	assert.Empty(t, reg.UncheckedChecksums())
}

func TestRun_NothingToCheck(t *testing.T) {
	reg := registry.New(testLogger())
	defer reg.Close()

	fc := newFakeClient(func(ctx context.Context, checksum string) (*client.ExistsResult, error) {
		t.Fatal("no lookup expected")
		return nil, nil
	})

	p := New(fc, reg, testLogger())
	assert.Equal(t, 0, p.Run(context.Background()))
}
