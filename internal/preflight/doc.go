// Package preflight validates the runtime environment before the daemon
// starts serving: directory permissions, cache free space, and the
// external tool binaries the invocation pools depend on.
package preflight
