package report

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/relaunch/pkg/logging"
	"github.com/psantana5/relaunch/pkg/relaunch"
)

// DefaultFailureLogSize is how many failures a Recorder keeps.
const DefaultFailureLogSize = 50

// Recorder turns relaunch attempts into Results, metrics, failure samples
// and log lines. It implements relaunch.Observer.
type Recorder struct {
	metrics  *Metrics
	failures *FailureLog
	logger   *logging.Logger

	mu   sync.RWMutex
	last *Result
}

var _ relaunch.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder whose metrics are registered with reg.
func NewRecorder(reg prometheus.Registerer, logger *logging.Logger) (*Recorder, error) {
	m, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		metrics:  m,
		failures: NewFailureLog(DefaultFailureLogSize),
		logger:   logger,
	}, nil
}

// Observe records one attempt.
func (r *Recorder) Observe(a relaunch.Attempt) {
	res := NewResult(a)

	r.metrics.RecordResult(res)
	r.failures.Record(res)
	res.LogSummary(r.logger)

	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
}

// Last returns a copy of the most recent Result, or nil before the first
// attempt.
func (r *Recorder) Last() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

// Failures returns the failure log.
func (r *Recorder) Failures() *FailureLog {
	return r.failures
}
