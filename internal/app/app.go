// Package app wires the offline store, the remote clients, the sync engine
// and the coordinator from a Config.
package app

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/kimhsiao/fieldcapture/backend/internal/config"
	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
	"github.com/kimhsiao/fieldcapture/backend/internal/media"
	"github.com/kimhsiao/fieldcapture/backend/internal/remote"
	"github.com/kimhsiao/fieldcapture/backend/internal/services"
	syncpkg "github.com/kimhsiao/fieldcapture/backend/internal/sync"
	"github.com/kimhsiao/fieldcapture/backend/internal/sync/queue"
	"github.com/kimhsiao/fieldcapture/backend/internal/sync/scheduler"
)

// App holds every long-lived component of one process.
type App struct {
	Config      *config.Config
	Queue       *queue.OfflineStore
	Store       *remote.S3ObjectStore
	Engine      *syncpkg.Engine
	Coordinator *scheduler.Coordinator
	Capture     *services.CaptureService

	closers []io.Closer
}

// New validates cfg and builds the component graph. Nothing is started and
// no network connection is made.
func New(cfg *config.Config) (*App, error) {
	logging.Init(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrStorageFault, "failed to create data dir", err)
	}

	a := &App{Config: cfg}

	store, err := queue.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a.Queue = store
	a.closers = append(a.closers, store)

	records, err := newRecordClient(cfg.Remote)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := records.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	objects, err := remote.NewObjectStore(remote.StoreConfig{
		Provider:      cfg.Storage.Provider,
		Endpoint:      cfg.Storage.Endpoint,
		AccountID:     cfg.Storage.AccountID,
		BucketName:    cfg.Storage.Bucket,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Region:        cfg.Storage.Region,
		UseSSL:        cfg.Storage.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = objects

	client := remote.NewGateway(records, objects)
	compressor := media.NewCompressor()

	a.Engine = syncpkg.NewEngine(store, compressor, client, syncpkg.WithMaxPhotoMB(cfg.Sync.MaxPhotoMB))

	var prober scheduler.Prober
	if cfg.Sync.HealthURL != "" {
		prober = remote.NewHTTPProbe(cfg.Sync.HealthURL, 0)
	}
	a.Coordinator = scheduler.NewCoordinator(a.Engine, store, prober, scheduler.Config{
		PollInterval: cfg.Sync.PollInterval,
		SettleDelay:  cfg.Sync.SettleDelay,
	})

	a.Capture = services.NewCaptureService(store, compressor, client, a.Coordinator, cfg.Sync.MaxPhotoMB)

	if _, err := a.Coordinator.RefreshPending(context.Background()); err != nil {
		a.Close()
		return nil, err
	}

	logging.Info("Application initialized", map[string]interface{}{
		"data_dir": cfg.DataDir,
		"remote":   cfg.Remote.Kind,
		"storage":  cfg.Storage.Provider,
	})
	return a, nil
}

func newRecordClient(cfg config.RemoteConfig) (remote.RecordSubmitter, error) {
	switch strings.ToLower(cfg.Kind) {
	case "mysql":
		return remote.NewMySQLRecordClient(cfg.MySQLDSN, cfg.Table)
	default:
		return remote.NewRESTRecordClient(remote.RESTConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Table:   cfg.Table,
			Timeout: cfg.Timeout,
		}, nil)
	}
}

// Start begins connectivity polling.
func (a *App) Start(ctx context.Context) error {
	return a.Coordinator.Start(ctx)
}

// Close stops the coordinator and releases the store and remote connections.
func (a *App) Close() error {
	if a.Coordinator != nil {
		a.Coordinator.Stop()
	}
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
