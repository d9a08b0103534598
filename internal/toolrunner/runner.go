package toolrunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"shelf/internal/logging"
	"shelf/internal/resourcecache"
)

const cachedResultExtension = ".json"

// PoolConfig sizes one concurrency class.
type PoolConfig struct {
	Slots   int
	Timeout time.Duration
}

type pool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// Record is the journal-facing summary of one terminal invocation.
type Record struct {
	Class     Class
	Binary    string
	Args      []string
	CacheKey  string
	State     State
	ExitCode  int
	Duration  time.Duration
	StartedAt time.Time
}

// Recorder persists invocation records. Implementations must tolerate
// concurrent calls.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Runner gates external tool invocations behind per-class pools. Construct
// exactly one per process and inject it; pools are process-wide budgets.
type Runner struct {
	pools    map[Class]*pool
	cache    *resourcecache.Cache
	exec     Executor
	recorder Recorder
	logger   *slog.Logger
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithRecorder wires an invocation journal.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRunner constructs a runner over the given per-class pool budgets.
func NewRunner(cache *resourcecache.Cache, pools map[Class]PoolConfig, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cache == nil {
		return nil, errors.New("toolrunner: resource cache required")
	}
	if len(pools) == 0 {
		return nil, errors.New("toolrunner: at least one pool required")
	}
	logger = logging.NewComponentLogger(logger, "toolrunner")

	built := make(map[Class]*pool, len(pools))
	for class, cfg := range pools {
		if cfg.Slots <= 0 {
			return nil, fmt.Errorf("toolrunner: pool %q needs positive slots", class)
		}
		if cfg.Timeout <= 0 {
			return nil, fmt.Errorf("toolrunner: pool %q needs positive timeout", class)
		}
		built[class] = &pool{
			sem:     semaphore.NewWeighted(int64(cfg.Slots)),
			timeout: cfg.Timeout,
		}
	}

	r := &Runner{
		pools:  built,
		cache:  cache,
		exec:   newCommandExecutor(logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Cached returns the memoized result for key, if any. A miss is (zero,
// false, nil), never an error.
func (r *Runner) Cached(key string) (Result, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{}, false, nil
	}
	payload, found, err := r.cache.ReadFile(key, cachedResultExtension)
	if err != nil {
		return Result{}, false, err
	}
	if !found {
		return Result{}, false, nil
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		// A corrupt cache entry behaves like a miss; the next Invoke
		// overwrites it.
		r.logger.Warn("discard unreadable cached result",
			logging.String(logging.FieldCacheKey, key),
			logging.Error(err))
		return Result{}, false, nil
	}
	return result, true, nil
}

// Invoke runs the tool under its class budget. The slot is released on
// every path; cancellation while queued never launches the process.
func (r *Runner) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if err := inv.validate(); err != nil {
		return Result{State: StateFailed}, err
	}
	p, ok := r.pools[inv.Class]
	if !ok {
		return Result{State: StateFailed}, Wrap(ErrValidation, string(inv.Class), "invoke", "unknown concurrency class", nil)
	}

	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldToolClass, string(inv.Class)),
		logging.String("binary", inv.Binary),
	)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		logger.Debug("invocation abandoned while queued", logging.Error(err))
		return Result{State: StateCancelled}, Wrap(ErrCancelled, string(inv.Class), "queue", "abandoned before slot acquisition", err)
	}
	defer p.sem.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	logger.Debug("tool starting", logging.String("args", strings.Join(inv.Args, " ")))
	outcome, runErr := r.exec.Run(runCtx, inv.Binary, inv.Args)
	duration := time.Since(started)

	result := Result{
		ExitCode: outcome.ExitCode,
		Duration: duration,
		Stdout:   outcome.Stdout,
		Stderr:   outcome.Stderr,
	}

	var err error
	switch {
	case runErr == nil:
		result.State = StateCompleted
	case ctx.Err() != nil:
		result.State = StateCancelled
		err = Wrap(ErrCancelled, string(inv.Class), "run", "invocation cancelled", context.Cause(ctx))
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.State = StateTimedOut
		err = Wrap(ErrTimeout, string(inv.Class), "run", fmt.Sprintf("exceeded %s budget", p.timeout), runErr)
	default:
		result.State = StateFailed
		err = Wrap(ErrToolFailure, string(inv.Class), "run", summarizeStderr(outcome.Stderr), runErr)
	}

	r.record(ctx, inv, result, started)

	if err != nil {
		logger.Warn("tool finished abnormally",
			logging.String("state", string(result.State)),
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("duration", duration),
			logging.Error(err))
		return result, err
	}

	logger.Debug("tool completed",
		logging.Duration("duration", duration),
		logging.Int("stdout_bytes", len(result.Stdout)))

	if key := strings.TrimSpace(inv.CacheKey); key != "" {
		if persistErr := r.persist(key, result); persistErr != nil {
			return result, persistErr
		}
	}
	return result, nil
}

func (r *Runner) persist(key string, result Result) error {
	stored := result
	stored.CachedAt = time.Now().UTC()
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	if _, err := r.cache.WriteFile(key, cachedResultExtension, payload); err != nil {
		return fmt.Errorf("persist cached result: %w", err)
	}
	return nil
}

func (r *Runner) record(ctx context.Context, inv Invocation, result Result, started time.Time) {
	if r.recorder == nil {
		return
	}
	rec := Record{
		Class:     inv.Class,
		Binary:    inv.Binary,
		Args:      append([]string(nil), inv.Args...),
		CacheKey:  inv.CacheKey,
		State:     result.State,
		ExitCode:  result.ExitCode,
		Duration:  result.Duration,
		StartedAt: started.UTC(),
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("journal invocation", logging.Error(err))
	}
}

func summarizeStderr(stderr []byte) string {
	trimmed := strings.TrimSpace(string(stderr))
	if trimmed == "" {
		return "tool exited abnormally"
	}
	const limit = 512
	if len(trimmed) > limit {
		trimmed = trimmed[:limit] + "..."
	}
	return trimmed
}
