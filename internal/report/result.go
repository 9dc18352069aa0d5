package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/relaunch/pkg/logging"
	"github.com/psantana5/relaunch/pkg/relaunch"
)

// Result is the frozen record of one relaunch attempt.
// Metrics, the failure log and summaries are all projections of it.
type Result struct {
	ID      string   `json:"id"`
	Path    string   `json:"path,omitempty"`
	Args    []string `json:"args,omitempty"`
	PID     int      `json:"pid,omitempty"`
	Outcome string   `json:"outcome"`
	Error   string   `json:"error,omitempty"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ns"`

	// Set by the host after the fact, never by the relauncher.
	Reason    string `json:"reason,omitempty"`
	Confirmed *bool  `json:"confirmed,omitempty"`
}

// NewResult freezes an attempt into a Result with a fresh ID.
func NewResult(a relaunch.Attempt) *Result {
	r := &Result{
		ID:        uuid.NewString(),
		Path:      a.Path,
		Args:      a.Args,
		PID:       a.PID,
		Outcome:   string(a.Outcome),
		StartTime: a.StartedAt,
		EndTime:   a.CompletedAt,
		Duration:  a.Duration(),
	}
	if a.Err != nil {
		r.Error = a.Err.Error()
	}
	return r
}

// Spawned reports whether the OS accepted the spawn.
func (r *Result) Spawned() bool {
	return r.Outcome == string(relaunch.OutcomeSpawned)
}

// LogSummary emits the one-line summary ops grep for.
func (r *Result) LogSummary(logger *logging.Logger) {
	msg := fmt.Sprintf("RELAUNCH %s | outcome=%s | pid=%d | took=%s",
		r.ID, r.Outcome, r.PID, r.Duration.Round(time.Microsecond))

	fields := map[string]interface{}{"path": r.Path}
	if r.Reason != "" {
		fields["reason"] = r.Reason
	}
	if r.Error != "" {
		fields["error"] = r.Error
		logger.Warn(msg, fields)
		return
	}
	logger.Info(msg, fields)
}
