package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"pixscale/models"
)

// OutcomeRecord is a stored job outcome
type OutcomeRecord struct {
	RunID     string            `json:"run_id"`
	Seq       int               `json:"seq"` // completion order within the run
	Timestamp time.Time         `json:"timestamp"`
	Outcome   models.JobOutcome `json:"outcome"`
}

func outcomeKey(prefix, runID string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", prefix, runID, seq))
}

// RecordOutcome stores one finished job under its run
func (l *Ledger) RecordOutcome(runID string, o models.JobOutcome) error {
	db, err := l.handle()
	if err != nil {
		return err
	}

	l.mu.Lock()
	seq := l.seq[runID]
	l.seq[runID] = seq + 1
	l.mu.Unlock()

	prefix := successPrefix
	if o.Failed() {
		prefix = failurePrefix
	} else {
		o.Output = ""
	}

	data, err := json.Marshal(OutcomeRecord{
		RunID:     runID,
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		Outcome:   o,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outcome record: %w", err)
	}
	return db.Set(outcomeKey(prefix, runID, seq), data, pebble.NoSync)
}

// ListFailures returns the failed jobs of a run in completion order
func (l *Ledger) ListFailures(runID string) ([]OutcomeRecord, error) {
	return l.listOutcomes(failurePrefix, runID)
}

// ListSuccesses returns the successful jobs of a run in completion order
func (l *Ledger) ListSuccesses(runID string) ([]OutcomeRecord, error) {
	return l.listOutcomes(successPrefix, runID)
}

func (l *Ledger) listOutcomes(prefix, runID string) ([]OutcomeRecord, error) {
	var records []OutcomeRecord
	err := l.scan(prefix+runID+"/", func(_, value []byte) error {
		var record OutcomeRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return nil // skip invalid records
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Flush makes buffered outcome writes durable
func (l *Ledger) Flush() error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	return db.Flush()
}
