package probe

import (
	"fmt"
	"strings"
	"time"
)

// CacheKey derives the memoization key for a probe of the given item. Any
// change to the source file's modification time or the tool version yields
// a different key, which is what makes the cache self-invalidating.
func CacheKey(itemID string, lastModified time.Time, toolVersion string) string {
	itemID = sanitizeKeyPart(itemID)
	toolVersion = sanitizeKeyPart(toolVersion)
	if toolVersion == "" {
		toolVersion = "unversioned"
	}
	return fmt.Sprintf("%s_%d_%s", itemID, lastModified.UTC().UnixNano(), toolVersion)
}

func sanitizeKeyPart(part string) string {
	part = strings.TrimSpace(part)
	replacer := strings.NewReplacer(" ", "-", "/", "-", "\\", "-", "_", "-")
	return replacer.Replace(part)
}
