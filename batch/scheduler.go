// Package batch runs a list of conversion jobs with a fixed concurrency ceiling.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"pixscale/logger"
	"pixscale/models"
)

// Converter runs one job to a terminal outcome. encoder.Invoker implements it.
type Converter interface {
	Invoke(ctx context.Context, desc models.JobDescriptor) models.JobOutcome
}

// OnJobDone is called once per finished job, successful or not
type OnJobDone func(models.JobOutcome)

// DefaultLimit is the number of processing units on the host
func DefaultLimit() int {
	return runtime.NumCPU()
}

// Run executes jobs with at most limit in flight and returns once every job
// has a terminal outcome. Jobs are admitted in list order as slots free up.
// A failed job never stops its siblings. onDone runs on the calling
// goroutine, exactly once per job, before the freed slot is refilled.
//
// Cancelling ctx kills running converters (they report failures) and marks
// jobs that were never admitted as failed without starting them.
func Run(ctx context.Context, jobs []models.JobDescriptor, limit int, conv Converter, onDone OnJobDone) models.BatchSummary {
	agg := NewAggregator(len(jobs))
	if len(jobs) == 0 {
		return agg.Summary()
	}
	if limit <= 0 {
		limit = DefaultLimit()
	}
	if limit > len(jobs) {
		limit = len(jobs)
	}

	submit := func(task func()) error {
		go task()
		return nil
	}
	pool, err := ants.NewPool(limit, ants.WithPreAlloc(true))
	if err != nil {
		logger.Warnf("worker pool unavailable, using plain goroutines: %v", err)
	} else {
		defer pool.Release()
		submit = pool.Submit
	}

	// never more unread outcomes than jobs in flight
	results := make(chan models.JobOutcome, limit)
	next, inFlight := 0, 0

	admit := func() {
		desc := jobs[next]
		next++
		inFlight++
		agg.Start()

		if err := ctx.Err(); err != nil {
			results <- notStarted(desc, err)
			return
		}
		task := func() {
			defer func() {
				if r := recover(); r != nil {
					results <- notStarted(desc, fmt.Errorf("converter panic: %v", r))
				}
			}()
			results <- conv.Invoke(ctx, desc)
		}
		if err := submit(task); err != nil {
			results <- notStarted(desc, err)
		}
	}

	for inFlight < limit && next < len(jobs) {
		admit()
	}
	for inFlight > 0 {
		outcome := <-results
		inFlight--
		agg.Add(outcome)
		if onDone != nil {
			onDone(outcome)
		}
		if next < len(jobs) {
			admit()
		}
	}

	return agg.Summary()
}

func notStarted(desc models.JobDescriptor, err error) models.JobOutcome {
	return models.JobOutcome{
		Descriptor: desc,
		Status:     models.StatusFailure,
		ExitCode:   -1,
		Output:     err.Error(),
	}
}
