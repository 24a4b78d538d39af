package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"beacon/internal/api"
	"beacon/internal/config"
	"beacon/internal/logging"
	"beacon/internal/profile"
	"beacon/internal/ratelimit"
)

// Daemon coordinates the API server and maintenance loop and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *profile.Store
	service *api.Service
	limiter *ratelimit.Limiter

	lockPath string
	lock     *flock.Flock

	apiServer *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Health       profile.HealthSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *profile.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "beacond.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		service:  api.NewService(cfg, store, logger),
		limiter:  ratelimit.New(cfg.RateLimit.RequestsPerMinute, time.Minute),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = srv
	return d, nil
}

// Start acquires the daemon lock and launches the API server and
// maintenance loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another beacon daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.apiServer != nil {
		if err := d.apiServer.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	go d.runMaintenance(d.ctx)

	d.running.Store(true)
	d.logger.Info("beacon daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.apiServer != nil {
		d.apiServer.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("beacon daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API server's listen address, empty when not serving.
func (d *Daemon) Addr() string {
	if d.apiServer == nil {
		return ""
	}
	return d.apiServer.addr()
}

// Status returns the current daemon status. Health counts are best effort;
// a failing store leaves them zero.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.store.Stats(ctx); err == nil {
		status.Health = health
	}
	return status
}
