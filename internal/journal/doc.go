// Package journal persists a SQLite record of every tool invocation.
//
// The journal is operational telemetry for the orchestrator: which tools
// ran, under which concurrency class, how long they took, and how they
// ended. It backs `shelf journal` and the /api/journal endpoint. It is not
// a cache and never influences cache decisions.
package journal
