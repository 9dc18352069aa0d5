package report

import (
	"sync"
	"time"
)

// FailureSample is a recent attempt that did not spawn a process.
type FailureSample struct {
	ID      string    `json:"id"`
	Path    string    `json:"path,omitempty"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// FailureLog keeps the last N failed attempts in a ring buffer.
// Spawn failures never reach the caller, so this is where they show up.
type FailureLog struct {
	samples []FailureSample
	maxSize int
	mu      sync.RWMutex
}

// NewFailureLog creates a failure log holding at most maxSize samples
func NewFailureLog(maxSize int) *FailureLog {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &FailureLog{
		samples: make([]FailureSample, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds r if it is a failure
func (f *FailureLog) Record(r *Result) {
	if r.Spawned() {
		return
	}

	sample := FailureSample{
		ID:      r.ID,
		Path:    r.Path,
		Outcome: r.Outcome,
		Error:   r.Error,
		At:      r.EndTime,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.samples) >= f.maxSize {
		f.samples = f.samples[1:]
	}
	f.samples = append(f.samples, sample)
}

// GetRecent returns up to n failures, newest first. n <= 0 means all.
func (f *FailureLog) GetRecent(n int) []FailureSample {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if n <= 0 || n > len(f.samples) {
		n = len(f.samples)
	}

	result := make([]FailureSample, n)
	for i := 0; i < n; i++ {
		result[i] = f.samples[len(f.samples)-1-i]
	}
	return result
}

// Count returns how many failures are currently held
func (f *FailureLog) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.samples)
}
