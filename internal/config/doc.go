// Package config loads, normalizes, and validates shelf configuration.
//
// Configuration lives in a TOML file (default ~/.config/shelf/config.toml,
// with a project-local shelf.toml fallback). Load applies defaults first,
// then file values, then normalization (path expansion, trimming) and
// validation, so the returned Config is always usable as-is.
//
// Sections by subsystem:
//   - Paths: cache root, library dir, log dir, and API bind address
//   - Tools: external probe/thumbnail binaries and their versions
//   - Pools: per-class concurrency budgets and timeouts
//   - HTTP: default cache max-age for served resources
//   - Journal: invocation journal database location
//   - Logging: log format and level
package config
