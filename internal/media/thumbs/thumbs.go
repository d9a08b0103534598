package thumbs

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"shelf/internal/config"
	"shelf/internal/logging"
	"shelf/internal/media/probe"
	"shelf/internal/resourcecache"
	"shelf/internal/toolrunner"
)

// Kind selects the extraction strategy and the pool that gates it.
type Kind string

const (
	// KindVideo seeks into the stream and grabs a frame.
	KindVideo Kind = "video"
	// KindAudio pulls embedded cover art.
	KindAudio Kind = "audio"
)

// Service extracts thumbnails into the resource cache. The artifact on
// disk is the memo: a cache hit never touches the tool pools.
type Service struct {
	runner  *toolrunner.Runner
	cache   *resourcecache.Cache
	binary  string
	version string
	logger  *slog.Logger
}

// NewService constructs a thumbnail service bound to the configured tool.
func NewService(runner *toolrunner.Runner, cache *resourcecache.Cache, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		runner:  runner,
		cache:   cache,
		binary:  cfg.Tools.ThumbnailBinary,
		version: cfg.Tools.ThumbnailVersion,
		logger:  logging.NewComponentLogger(logger, "thumbs"),
	}
}

// Extract returns the cache path of the item's thumbnail, producing it on
// first request. The tool writes to a temp path in the shard directory and
// the artifact appears atomically.
func (s *Service) Extract(ctx context.Context, itemID, path string, kind Kind) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat media file: %w", err)
	}

	key := probe.CacheKey(itemID+"-thumb-"+string(kind), info.ModTime(), s.version)
	artifact, err := s.cache.ResourcePath(key, ".jpg")
	if err != nil {
		return "", err
	}
	if resourcecache.ExistsPath(artifact) {
		return artifact, nil
	}

	tmp := fmt.Sprintf("%s.%d.tmp", artifact, os.Getpid())
	invocation := toolrunner.Invocation{
		Class:  classFor(kind),
		Binary: s.binary,
		Args:   buildArgs(kind, path, tmp),
	}

	ctx = logging.WithCacheKey(ctx, key)
	if _, err := s.runner.Invoke(ctx, invocation); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, artifact); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish thumbnail: %w", err)
	}
	s.logger.Debug("thumbnail extracted",
		logging.String(logging.FieldCacheKey, key),
		logging.String("kind", string(kind)))
	return artifact, nil
}

func classFor(kind Kind) toolrunner.Class {
	if kind == KindAudio {
		return toolrunner.ClassAudioThumbnail
	}
	return toolrunner.ClassVideoThumbnail
}

// buildArgs assembles the extraction command line. Video grabs a scaled
// frame from ten seconds in; audio lifts the first attached picture stream.
func buildArgs(kind Kind, path, out string) []string {
	args := []string{"-hide_banner", "-v", "error"}
	switch kind {
	case KindAudio:
		args = append(args, "-i", path, "-map", "0:v:0", "-frames:v", "1")
	default:
		args = append(args, "-ss", "10", "-i", path, "-frames:v", "1", "-vf", "scale=640:-2")
	}
	return append(args, "-f", "mjpeg", "-y", out)
}
