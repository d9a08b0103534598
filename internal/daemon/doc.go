// Package daemon wires the cache, tool pools, and media services together
// behind a single-instance lock and exposes them over the HTTP API.
package daemon
