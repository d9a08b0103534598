package toolrunner

import (
	"strings"
	"time"
)

// Class selects which bounded pool gates an invocation.
type Class string

const (
	ClassProbe          Class = "probe"
	ClassAudioThumbnail Class = "audio-thumbnail"
	ClassVideoThumbnail Class = "video-thumbnail"
)

// State tracks an invocation through its lifecycle.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Invocation describes one external tool run. Ephemeral: built per call,
// never persisted.
type Invocation struct {
	Class  Class
	Binary string
	Args   []string

	// CacheKey, when set, memoizes the successful result through the
	// resource cache so identical keys short-circuit future runs.
	CacheKey string
}

func (inv Invocation) validate() error {
	if strings.TrimSpace(string(inv.Class)) == "" {
		return Wrap(ErrValidation, "", "invoke", "concurrency class required", nil)
	}
	if strings.TrimSpace(inv.Binary) == "" {
		return Wrap(ErrValidation, string(inv.Class), "invoke", "binary required", nil)
	}
	return nil
}

// Result captures the terminal state of an invocation.
type Result struct {
	State    State         `json:"state"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`

	// CachedAt is set when the result was loaded from the cache rather
	// than produced by a fresh run.
	CachedAt time.Time `json:"cached_at,omitzero"`
}

// FromCache reports whether the result was served from the memoized cache.
func (r Result) FromCache() bool {
	return !r.CachedAt.IsZero()
}
