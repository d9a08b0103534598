// Package keylock provides per-key mutual exclusion for cache producers.
//
// A Registry hands out one lock per key on demand and reclaims it once the
// last holder or waiter is gone, so the registry stays bounded regardless of
// how many distinct keys pass through the server's lifetime. Acquisition is
// context-aware: a waiter that gives up never corrupts the bookkeeping for
// the waiters behind it.
//
// The registry guarantees mutual exclusion only. Waiter wake-up order is
// whatever the underlying primitive provides; callers must not rely on FIFO
// admission.
package keylock
