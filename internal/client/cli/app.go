package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/picsync/internal/client/cache"
	"github.com/dmitrijs2005/picsync/internal/client/client"
	"github.com/dmitrijs2005/picsync/internal/client/config"
	"github.com/dmitrijs2005/picsync/internal/client/ingest"
	"github.com/dmitrijs2005/picsync/internal/client/reconcile"
	"github.com/dmitrijs2005/picsync/internal/client/registry"
	"github.com/dmitrijs2005/picsync/internal/client/upload"
	"github.com/dmitrijs2005/picsync/internal/filex"
	"github.com/dmitrijs2005/picsync/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App wires the upload pipeline together for the interactive CLI: the
// asset registry, the reconciliation pool, the upload queue and the API
// client.
type App struct {
	config   *config.Config
	logger   logging.Logger
	api      client.Client
	registry *registry.Registry
	pool     *reconcile.Pool
	queue    *upload.Queue
	driver   *upload.Driver
	ingestor *ingest.Ingestor

	cacheDB *sql.DB

	userName string
	Mode     Mode
	reader   *bufio.Reader

	// anchor is the last explicitly selected checksum, used as the fixed
	// endpoint for range selection.
	anchor string
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	previewDir, err := filex.EnsureSubdDir("previews")
	if err != nil {
		return nil, err
	}

	cacheRepo, cacheDB, err := cache.InitDatabase(ctx, c.CacheDSN)
	if err != nil {
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerBaseURL)

	reg := registry.NewWithDelay(logger, c.UnselectDelay)
	pool := reconcile.NewWithSize(apiClient, reg, logger, c.WorkerCount)
	queue := upload.NewQueue()

	return &App{
		config:   c,
		logger:   logger,
		api:      apiClient,
		registry: reg,
		pool:     pool,
		queue:    queue,
		driver:   upload.NewDriver(queue, apiClient, reg, logger),
		ingestor: ingest.New(previewDir, cacheRepo, logger),
		cacheDB:  cacheDB,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close releases every preview handle held by the registry and the local
// cache database.
func (a *App) Close() {
	a.registry.Close()
	if a.cacheDB != nil {
		_ = a.cacheDB.Close()
	}
	_ = a.api.Close()
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

// StartOnlineStatusWatcher periodically probes server reachability and
// flips the connectivity mode accordingly.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.api.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
