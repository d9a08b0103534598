package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizePools()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheRoot) == "" {
		c.Paths.CacheRoot = defaultCacheRoot
	}
	if c.Paths.CacheRoot, err = expandPath(c.Paths.CacheRoot); err != nil {
		return fmt.Errorf("paths.cache_root: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.ProbeBinary = strings.TrimSpace(c.Tools.ProbeBinary)
	if c.Tools.ProbeBinary == "" {
		c.Tools.ProbeBinary = defaultProbeBinary
	}
	c.Tools.ThumbnailBinary = strings.TrimSpace(c.Tools.ThumbnailBinary)
	if c.Tools.ThumbnailBinary == "" {
		c.Tools.ThumbnailBinary = defaultThumbnailBinary
	}
	c.Tools.ProbeVersion = strings.TrimSpace(c.Tools.ProbeVersion)
	c.Tools.ThumbnailVersion = strings.TrimSpace(c.Tools.ThumbnailVersion)
	if c.Tools.MinProbeDepth <= 0 {
		c.Tools.MinProbeDepth = defaultMinProbeDepth
	}
	if len(c.Tools.DeepScanExtensions) == 0 {
		c.Tools.DeepScanExtensions = append([]string(nil), defaultDeepScanExtensions...)
	}
	for i, ext := range c.Tools.DeepScanExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Tools.DeepScanExtensions[i] = ext
	}
}

func (c *Config) normalizePools() {
	if c.Pools.ProbeSlots <= 0 {
		c.Pools.ProbeSlots = defaultProbeSlots
	}
	if c.Pools.ProbeTimeout <= 0 {
		c.Pools.ProbeTimeout = defaultProbeTimeout
	}
	if c.Pools.AudioThumbnailSlots <= 0 {
		c.Pools.AudioThumbnailSlots = defaultAudioThumbnailSlots
	}
	if c.Pools.AudioThumbnailTimeout <= 0 {
		c.Pools.AudioThumbnailTimeout = defaultAudioThumbnailTimeout
	}
	if c.Pools.VideoThumbnailSlots <= 0 {
		c.Pools.VideoThumbnailSlots = defaultVideoThumbnailSlots
	}
	if c.Pools.VideoThumbnailTimeout <= 0 {
		c.Pools.VideoThumbnailTimeout = defaultVideoThumbnailTimeout
	}
	if c.HTTP.DefaultMaxAge < 0 {
		c.HTTP.DefaultMaxAge = defaultHTTPMaxAge
	}
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
