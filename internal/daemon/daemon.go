// Package daemon ties the pipeline together: it owns the HTTP API, the
// background ingestion scanner, and single-instance locking.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"bookcast/internal/api"
	"bookcast/internal/config"
	"bookcast/internal/jobs"
	"bookcast/internal/logging"
	"bookcast/internal/metrics"
	"bookcast/internal/orchestrator"
	"bookcast/internal/scanner"
	"bookcast/internal/storage"
)

type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *storage.Store
	orch    *orchestrator.Orchestrator
	scanner *scanner.Scanner
	service *api.Service
	metrics *metrics.Metrics
	server  *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	StorageConnected bool
	ScannerEnabled   bool
	LockFilePath     string
	APIAddr          string
	Jobs             JobCounts
}

// JobCounts aggregates the registry by lifecycle state.
type JobCounts struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Failed     int
}

// New constructs a daemon with initialized dependencies. The store may be
// nil; the daemon then serves status endpoints in degraded mode.
func New(cfg *config.Config, store *storage.Store, orch *orchestrator.Orchestrator, m *metrics.Metrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || orch == nil || logger == nil {
		return nil, errors.New("daemon requires config, orchestrator, and logger")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		metrics:  m,
		lockPath: filepath.Join(cfg.Paths.LogDir, "bookcastd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.service = api.NewService(orch.Registry(), store, cfg.Storage.PublicBaseURL, logger)

	if store != nil && cfg.Scanner.Enabled {
		d.scanner = scanner.New(cfg, store, orch, m, logger)
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock and launches the API server and scanner.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bookcast daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.orch.Start(d.ctx)

	if err := d.server.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return err
	}

	if d.scanner != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.scanner.Run(d.ctx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("bookcast daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("storage", d.store != nil),
		logging.Bool("scanner", d.scanner != nil))
	return nil
}

// Stop shuts down the API server and scanner and releases the lock.
// Running job tasks are not interrupted beyond context cancellation.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("bookcast daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr reports the bound address of the HTTP server, or "".
func (d *Daemon) APIAddr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	counts := JobCounts{}
	for _, job := range d.orch.Registry().List() {
		counts.Total++
		switch job.Status {
		case jobs.StatusQueued:
			counts.Queued++
		case jobs.StatusProcessing:
			counts.Processing++
		case jobs.StatusCompleted:
			counts.Completed++
		case jobs.StatusFailed:
			counts.Failed++
		}
	}
	return Status{
		Running:          d.running.Load(),
		StorageConnected: d.store != nil,
		ScannerEnabled:   d.scanner != nil,
		LockFilePath:     d.lockPath,
		APIAddr:          d.APIAddr(),
		Jobs:             counts,
	}
}

// ttsBackends names the configured synthesis backends for health output.
func (d *Daemon) ttsBackends() []string {
	var backends []string
	if strings.TrimSpace(d.cfg.TTS.ServiceURL) != "" {
		backends = append(backends, "primary")
	}
	if strings.TrimSpace(d.cfg.TTS.FallbackURL) != "" {
		backends = append(backends, "fallback")
	}
	if len(backends) == 0 {
		backends = append(backends, "none")
	}
	return backends
}
