// Package toolrunner launches external analysis tools under bounded
// concurrency with per-class timeouts and cache memoization.
//
// Each tool class (probe, audio-thumbnail, video-thumbnail) owns an
// independently sized slot pool, reflecting that the classes have very
// different CPU cost and stability. An invocation acquires a slot, runs the
// tool with both output streams drained concurrently, races natural exit
// against the class timeout, and releases the slot on every path. Timeouts
// force-terminate the process so a hung tool can never pin a slot.
//
// Outcomes are classified into a small sentinel taxonomy (ErrTimeout,
// ErrToolFailure, ErrCancelled, ErrParse) so callers can branch with
// errors.Is instead of inspecting raw exec errors. The runner never retries;
// retry policy belongs to the caller.
//
// When an invocation carries a cache key, the successful result is
// serialized through resourcecache so a later call with an identical key
// skips the tool entirely. Callers check Cached before Invoke: the lookup
// is the fast path, Invoke is the slow path.
package toolrunner
