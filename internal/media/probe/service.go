package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"shelf/internal/config"
	"shelf/internal/logging"
	"shelf/internal/toolrunner"
)

// Service runs media probes through the tool runner with memoization.
type Service struct {
	runner   *toolrunner.Runner
	binary   string
	version  string
	minDepth int64
	deepScan func(ext string) bool
	logger   *slog.Logger
}

// NewService constructs a probe service bound to the configured tool.
func NewService(runner *toolrunner.Runner, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		runner:   runner,
		binary:   cfg.Tools.ProbeBinary,
		version:  cfg.Tools.ProbeVersion,
		minDepth: cfg.Tools.MinProbeDepth,
		deepScan: cfg.DeepScanExtension,
		logger:   logging.NewComponentLogger(logger, "probe"),
	}
}

// Inspect probes the media file, serving a memoized result when the item's
// key recomputes identically. The cache lookup is the fast path; a tool run
// is the slow path taken exactly once per (item, mtime, tool version).
func (s *Service) Inspect(ctx context.Context, itemID, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat media file: %w", err)
	}

	key := CacheKey(itemID, info.ModTime(), s.version)
	ctx = logging.WithCacheKey(ctx, key)

	if cached, found, err := s.runner.Cached(key); err != nil {
		return Result{}, err
	} else if found {
		s.logger.Debug("probe served from cache", logging.String(logging.FieldCacheKey, key))
		return Parse(cached.Stdout)
	}

	invocation := toolrunner.Invocation{
		Class:    toolrunner.ClassProbe,
		Binary:   s.binary,
		Args:     s.buildArgs(path),
		CacheKey: key,
	}
	result, err := s.runner.Invoke(ctx, invocation)
	if err != nil {
		return Result{}, err
	}
	return Parse(result.Stdout)
}

// buildArgs assembles the probe command line. The minimum analysis depth is
// applied only to container types that need deep scanning (disc images);
// everything else keeps the tool's default depth.
func (s *Service) buildArgs(path string) []string {
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json"}
	if s.deepScan != nil && s.deepScan(filepath.Ext(path)) && s.minDepth > 0 {
		depth := strconv.FormatInt(s.minDepth, 10)
		args = append(args, "-analyzeduration", depth, "-probesize", depth)
	}
	args = append(args, "--", path)
	return args
}
