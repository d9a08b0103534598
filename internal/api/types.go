package api

import "time"

// CheckStatus reports one preflight check outcome.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	CacheRoot    string             `json:"cacheRoot"`
	LockFilePath string             `json:"lockFilePath"`
	JournalPath  string             `json:"journalPath,omitempty"`
	ActiveKeys   int                `json:"activeKeys"`
	Checks       []CheckStatus      `json:"checks"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Invocations  map[string]int64   `json:"invocations,omitempty"`
}

// JournalEntry describes one recorded tool invocation.
type JournalEntry struct {
	ID         int64     `json:"id"`
	Class      string    `json:"class"`
	Binary     string    `json:"binary"`
	Args       string    `json:"args"`
	CacheKey   string    `json:"cacheKey,omitempty"`
	State      string    `json:"state"`
	ExitCode   int       `json:"exitCode"`
	DurationMS int64     `json:"durationMs"`
	StartedAt  time.Time `json:"startedAt"`
}

// JournalResponse wraps a collection of journal entries.
type JournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// InvocationEvent is pushed to websocket subscribers as tool invocations
// finish.
type InvocationEvent struct {
	Type       string    `json:"type"`
	Class      string    `json:"class"`
	Binary     string    `json:"binary"`
	State      string    `json:"state"`
	ExitCode   int       `json:"exitCode"`
	DurationMS int64     `json:"durationMs"`
	CacheKey   string    `json:"cacheKey,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
