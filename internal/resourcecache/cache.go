package resourcecache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Cache derives deterministic on-disk locations under a fixed root.
type Cache struct {
	root string
}

// New constructs a cache rooted at the given directory. The root itself is
// created immediately; shard directories are created lazily.
func New(root string) (*Cache, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("resourcecache: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Cache{root: root}, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// HashName returns the hex digest used as the on-disk filename for a
// logical resource name.
func HashName(uniqueName string) string {
	sum := md5.Sum([]byte(uniqueName))
	return hex.EncodeToString(sum[:])
}

// ResourcePath returns the sharded path for a logical name and extension.
// The shard directory is created on first use; concurrent creators are
// tolerated. Identical arguments always yield the identical path.
func (c *Cache) ResourcePath(uniqueName, extension string) (string, error) {
	if uniqueName == "" {
		return "", errors.New("resourcecache: unique name required")
	}
	return c.ResourcePathForFile(HashName(uniqueName) + normalizeExtension(extension))
}

// ResourcePathForFile applies the sharding scheme to an already-hashed
// filename, for callers that construct their own keys.
func (c *Cache) ResourcePathForFile(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", errors.New("resourcecache: filename required")
	}
	shard := filepath.Join(c.root, filename[:1])
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return "", fmt.Errorf("create shard directory: %w", err)
	}
	return filepath.Join(shard, filename), nil
}

// Exists reports whether a cached artifact exists for the logical name.
// The filesystem is the source of truth; the result is never memoized.
func (c *Cache) Exists(uniqueName, extension string) bool {
	path, err := c.ResourcePath(uniqueName, extension)
	if err != nil {
		return false
	}
	return ExistsPath(path)
}

// ExistsPath reports whether the given path names a regular file.
func ExistsPath(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func normalizeExtension(extension string) string {
	extension = strings.TrimSpace(extension)
	if extension == "" {
		return ""
	}
	if !strings.HasPrefix(extension, ".") {
		return "." + extension
	}
	return extension
}

// WriteFile atomically persists payload at the sharded path for uniqueName,
// using a temp file plus rename so readers never observe partial content.
func (c *Cache) WriteFile(uniqueName, extension string, payload []byte) (string, error) {
	path, err := c.ResourcePath(uniqueName, extension)
	if err != nil {
		return "", err
	}
	if err := WritePath(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

// tmpSeq disambiguates temp files from concurrent writers landing in the
// same shard directory.
var tmpSeq atomic.Uint64

// WritePath atomically writes payload at an exact cache path.
func WritePath(path string, payload []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".shelf-cache-%d-%d.tmp", os.Getpid(), tmpSeq.Add(1)))
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("promote cache file: %w", err)
	}
	return nil
}

// ReadFile returns the cached payload for uniqueName. A miss is reported as
// found=false, not as an error.
func (c *Cache) ReadFile(uniqueName, extension string) ([]byte, bool, error) {
	path, err := c.ResourcePath(uniqueName, extension)
	if err != nil {
		return nil, false, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}
	return payload, true, nil
}
