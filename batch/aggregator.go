package batch

import (
	"sync"
	"time"

	"pixscale/models"
)

// Aggregator accumulates job outcomes into a BatchSummary. Safe for
// concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	total     int
	completed int
	failed    []models.JobOutcome
	started   time.Time
	finished  time.Time
	now       func() time.Time
}

// NewAggregator creates an aggregator expecting total outcomes
func NewAggregator(total int) *Aggregator {
	return &Aggregator{total: total, now: time.Now}
}

// Start marks the first admission. Later calls are ignored.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started.IsZero() {
		a.started = a.now()
	}
}

// Add records one terminal outcome
func (a *Aggregator) Add(o models.JobOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completed++
	if o.Failed() {
		a.failed = append(a.failed, o)
	}
	a.finished = a.now()
}

// Completed returns how many outcomes have been recorded
func (a *Aggregator) Completed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed
}

// FailedCount returns how many recorded outcomes were failures
func (a *Aggregator) FailedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.failed)
}

// Summary returns a snapshot. It is final once Completed equals the total.
func (a *Aggregator) Summary() models.BatchSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	failed := make([]models.JobOutcome, len(a.failed))
	copy(failed, a.failed)

	var elapsed time.Duration
	if !a.started.IsZero() && !a.finished.IsZero() {
		elapsed = a.finished.Sub(a.started)
	}
	return models.BatchSummary{
		TotalJobs: a.total,
		Failed:    failed,
		Elapsed:   elapsed,
	}
}
