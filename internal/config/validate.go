package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validatePools(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CacheRoot) == "" {
		return errors.New("paths.cache_root must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.ProbeBinary == "" {
		return errors.New("tools.probe_binary must be set")
	}
	if c.Tools.ThumbnailBinary == "" {
		return errors.New("tools.thumbnail_binary must be set")
	}
	for _, ext := range c.Tools.DeepScanExtensions {
		if ext == "" || !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("tools.deep_scan_extensions: invalid extension %q", ext)
		}
	}
	return nil
}

func (c *Config) validatePools() error {
	pools := []struct {
		name    string
		slots   int
		timeout int
	}{
		{"probe", c.Pools.ProbeSlots, c.Pools.ProbeTimeout},
		{"audio_thumbnail", c.Pools.AudioThumbnailSlots, c.Pools.AudioThumbnailTimeout},
		{"video_thumbnail", c.Pools.VideoThumbnailSlots, c.Pools.VideoThumbnailTimeout},
	}
	for _, pool := range pools {
		if pool.slots <= 0 {
			return fmt.Errorf("pools.%s_slots must be positive", pool.name)
		}
		if pool.timeout <= 0 {
			return fmt.Errorf("pools.%s_timeout must be positive", pool.name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
