package relaunch

import "time"

// Outcome is how a relaunch attempt ended.
type Outcome string

const (
	OutcomePathUnavailable Outcome = "path_unavailable"
	OutcomeSpawned         Outcome = "spawned"
	OutcomeSpawnFailed     Outcome = "spawn_failed"
)

// Attempt is the record of one Relaunch call. It carries the child's PID
// for observability only; no handle to the child exists.
type Attempt struct {
	Path        string
	Args        []string
	PID         int
	Outcome     Outcome
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration is how long the call took.
func (a Attempt) Duration() time.Duration {
	return a.CompletedAt.Sub(a.StartedAt)
}

// Observer receives every attempt after it completes, on the caller's
// goroutine. Observers must not block.
type Observer interface {
	Observe(Attempt)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Attempt)

// Observe calls f(a).
func (f ObserverFunc) Observe(a Attempt) {
	f(a)
}
