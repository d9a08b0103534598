package chapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"shelf/internal/config"
	"shelf/internal/logging"
	"shelf/internal/media/probe"
	"shelf/internal/toolrunner"
)

// Service mines chapter markers from the thumbnail tool's diagnostic
// output, memoizing the raw output per (item, mtime, tool version).
type Service struct {
	runner  *toolrunner.Runner
	binary  string
	version string
	logger  *slog.Logger
}

// NewService constructs a chapter service bound to the configured tool.
func NewService(runner *toolrunner.Runner, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		runner:  runner,
		binary:  cfg.Tools.ThumbnailBinary,
		version: cfg.Tools.ThumbnailVersion,
		logger:  logging.NewComponentLogger(logger, "chapters"),
	}
}

// Scan extracts chapter markers from the media file. The tool run is
// memoized; the diagnostic text is re-parsed on every call so parser fixes
// apply to cached runs too.
func (s *Service) Scan(ctx context.Context, itemID, path string) ([]Marker, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat media file: %w", err)
	}

	key := probe.CacheKey(itemID+"-chapters", info.ModTime(), s.version)
	ctx = logging.WithCacheKey(ctx, key)

	if cached, found, err := s.runner.Cached(key); err != nil {
		return nil, err
	} else if found {
		s.logger.Debug("chapter scan served from cache", logging.String(logging.FieldCacheKey, key))
		return Parse(string(cached.Stderr))
	}

	invocation := toolrunner.Invocation{
		Class:    toolrunner.ClassVideoThumbnail,
		Binary:   s.binary,
		Args:     s.buildArgs(path),
		CacheKey: key,
	}
	result, err := s.runner.Invoke(ctx, invocation)
	if err != nil {
		return nil, err
	}
	return Parse(string(result.Stderr))
}

// buildArgs assembles a zero-output decode that makes the tool print the
// input's chapter metadata on its diagnostic stream and exit cleanly.
func (s *Service) buildArgs(path string) []string {
	return []string{"-hide_banner", "-i", path, "-t", "0", "-f", "null", "-"}
}
