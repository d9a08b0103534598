// Package resourcecache maps logical resource names to sharded on-disk
// paths.
//
// Paths follow {root}/{shard}/{hash}{ext}, where hash is the 128-bit digest
// of the logical name and shard is the first character of the hashed
// filename. Sharding bounds per-directory file counts independent of total
// library size, which is what keeps large caches fast on filesystems with
// slow directory scans.
//
// The package performs no locking. Producers that write through the cache
// serialize themselves with keylock; path resolution and existence checks
// are safe from any goroutine at any time.
package resourcecache
