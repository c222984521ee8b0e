package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"pixscale/models"
)

// RunInfo describes the batch being started
type RunInfo struct {
	InputDir  string              `json:"input_dir"`
	OutputDir string              `json:"output_dir"`
	FileType  string              `json:"file_type"`
	BaseSize  int                 `json:"base_size"`
	Scales    []models.ScaleEntry `json:"scales"`
	TotalJobs int                 `json:"total_jobs"`
}

// RunRecord is one run as stored in the ledger
type RunRecord struct {
	ID         string    `json:"id"`
	Info       RunInfo   `json:"info"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Failed     int       `json:"failed"`
	Elapsed    float64   `json:"elapsed_seconds"`
}

// Finished reports whether FinishRun was recorded for the run
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// BeginRun stores a new run record and returns its ID
func (l *Ledger) BeginRun(info RunInfo) (string, error) {
	record := RunRecord{
		ID:        uuid.NewString(),
		Info:      info,
		StartedAt: time.Now().UTC(),
	}
	if err := l.putRun(record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// FinishRun closes a run with its summary
func (l *Ledger) FinishRun(id string, summary models.BatchSummary) error {
	record, err := l.GetRun(id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("run %s not found", id)
	}
	record.FinishedAt = time.Now().UTC()
	record.Failed = summary.FailedCount()
	record.Elapsed = summary.ElapsedSeconds()
	record.Info.TotalJobs = summary.TotalJobs
	return l.putRun(*record)
}

func (l *Ledger) putRun(record RunRecord) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}
	return db.Set(runKey(record.ID), data, pebble.Sync)
}

// GetRun returns the run with id, or nil when it does not exist
func (l *Ledger) GetRun(id string) (*RunRecord, error) {
	db, err := l.handle()
	if err != nil {
		return nil, err
	}
	data, closer, err := db.Get(runKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer closer.Close()

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &record, nil
}

// ListRuns returns every run, oldest first
func (l *Ledger) ListRuns() ([]RunRecord, error) {
	var runs []RunRecord
	err := l.scan(runPrefix, func(_, value []byte) error {
		var record RunRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return nil // skip invalid records
		}
		runs = append(runs, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

// CleanupOlderThan removes runs started before now-maxAge together with
// their outcomes, and returns how many runs were removed
func (l *Ledger) CleanupOlderThan(maxAge time.Duration) (int, error) {
	runs, err := l.ListRuns()
	if err != nil {
		return 0, err
	}
	db, err := l.handle()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, r := range runs {
		if !r.StartedAt.Before(cutoff) {
			continue
		}
		for _, prefix := range []string{failurePrefix, successPrefix} {
			start := []byte(prefix + r.ID + "/")
			if err := db.DeleteRange(start, upperBound(start), pebble.Sync); err != nil {
				return removed, fmt.Errorf("failed to delete outcomes of run %s: %w", r.ID, err)
			}
		}
		if err := db.Delete(runKey(r.ID), pebble.Sync); err != nil {
			return removed, fmt.Errorf("failed to delete run %s: %w", r.ID, err)
		}
		l.mu.Lock()
		delete(l.seq, r.ID)
		l.mu.Unlock()
		removed++
	}
	return removed, nil
}
