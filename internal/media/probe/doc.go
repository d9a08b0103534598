// Package probe provides a typed wrapper around the media probe tool's JSON
// output and the cache-key scheme that memoizes it.
//
// Key types:
//   - Result: parsed probe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - Service: runs the probe through the tool runner with caching
//
// Cache keys have the form {itemID}_{lastModifiedTicks}_{toolVersion}, so a
// source edit or a tool upgrade recomputes to a different key and the stale
// entry is simply never read again. No separate invalidation channel exists
// or is needed.
package probe
