package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shelf/internal/config"
	"shelf/internal/journal"
	"shelf/internal/keylock"
	"shelf/internal/logging"
	"shelf/internal/media/chapters"
	"shelf/internal/media/probe"
	"shelf/internal/media/thumbs"
	"shelf/internal/preflight"
	"shelf/internal/resourcecache"
	"shelf/internal/toolrunner"
)

// Daemon owns the shared components and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    *resourcecache.Cache
	runner   *toolrunner.Runner
	probes   *probe.Service
	chapters *chapters.Service
	thumbs   *thumbs.Service
	locks    *keylock.Registry
	journal  *journal.Store
	hub      *eventHub
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	CacheRoot    string
	LockFilePath string
	JournalPath  string
	ActiveKeys   int
	Checks       []preflight.Result
	Dependencies []preflight.BinaryStatus
	Invocations  map[string]int64
}

// Option adjusts daemon construction.
type Option func(*settings)

type settings struct {
	exec toolrunner.Executor
}

// WithExecutor swaps the tool executor. Tests use this to avoid spawning
// real processes.
func WithExecutor(exec toolrunner.Executor) Option {
	return func(s *settings) {
		s.exec = exec
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	var set settings
	for _, opt := range opts {
		opt(&set)
	}

	cache, err := resourcecache.New(cfg.Paths.CacheRoot)
	if err != nil {
		return nil, fmt.Errorf("open resource cache: %w", err)
	}

	hub := newEventHub(logger)

	var store *journal.Store
	recorder := toolrunner.Recorder(hub)
	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.Path) != "" {
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		recorder = teeRecorder{store: store, hub: hub}
	}

	runnerOpts := []toolrunner.Option{toolrunner.WithRecorder(recorder)}
	if set.exec != nil {
		runnerOpts = append(runnerOpts, toolrunner.WithExecutor(set.exec))
	}
	runner, err := toolrunner.NewRunner(cache, poolConfigs(cfg), logger, runnerOpts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "shelfd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		cache:    cache,
		runner:   runner,
		probes:   probe.NewService(runner, cfg, logger),
		chapters: chapters.NewService(runner, cfg, logger),
		thumbs:   thumbs.NewService(runner, cache, cfg, logger),
		locks:    keylock.NewRegistry(),
		journal:  store,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

func poolConfigs(cfg *config.Config) map[toolrunner.Class]toolrunner.PoolConfig {
	return map[toolrunner.Class]toolrunner.PoolConfig{
		toolrunner.ClassProbe: {
			Slots:   cfg.Pools.ProbeSlots,
			Timeout: time.Duration(cfg.Pools.ProbeTimeout) * time.Second,
		},
		toolrunner.ClassAudioThumbnail: {
			Slots:   cfg.Pools.AudioThumbnailSlots,
			Timeout: time.Duration(cfg.Pools.AudioThumbnailTimeout) * time.Second,
		},
		toolrunner.ClassVideoThumbnail: {
			Slots:   cfg.Pools.VideoThumbnailSlots,
			Timeout: time.Duration(cfg.Pools.VideoThumbnailTimeout) * time.Second,
		},
	}
}

// Start acquires the daemon lock and launches the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shelf daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("shelf daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.hub.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shelf daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Journal exposes the invocation journal; nil when journaling is disabled.
func (d *Daemon) Journal() *journal.Store {
	return d.journal
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		CacheRoot:    d.cache.Root(),
		LockFilePath: d.lockPath,
		ActiveKeys:   d.locks.Len(),
		Checks:       preflight.RunAll(d.cfg),
		Dependencies: preflight.SystemDeps(d.cfg),
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
		if counts, err := d.journal.CountByState(ctx); err == nil {
			status.Invocations = counts
		}
	}
	return status
}
