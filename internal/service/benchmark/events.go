package benchmark

import (
	"time"

	"github.com/llmbench/llmbench/internal/chat"
)

// EventKind identifies a progress event emitted during a run
type EventKind string

const (
	EventRunStarted  EventKind = "run_started"
	EventSuccess     EventKind = "success"
	EventFallback    EventKind = "fallback"
	EventRetry       EventKind = "retry"
	EventAbandoned   EventKind = "abandoned"
	EventPacing      EventKind = "pacing"
	EventRunFinished EventKind = "run_finished"
)

// Event describes progress within a run. Iteration is 1-based. Attempt is
// the retry number the event refers to (0 for the first try).
type Event struct {
	Kind       EventKind
	Iteration  int
	Total      int
	Attempt    int
	MaxRetries int
	Endpoint   string
	Latency    time.Duration
	Delay      time.Duration
	Successes  int
	Outcome    chat.Outcome
}

// Observer receives progress events synchronously from the run loop
type Observer func(Event)
