// Package ledger keeps a pebble-backed history of runs and their job outcomes.
// It is a record only; nothing in it is consulted to skip work.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

const (
	runPrefix     = "runs/"
	failurePrefix = "failures/"
	successPrefix = "success/"
)

var ErrClosed = errors.New("ledger is closed")

// Ledger wraps a pebble DB
type Ledger struct {
	db   *pebble.DB
	path string

	mu  sync.Mutex
	seq map[string]int // next outcome sequence number per run
}

// Open opens (or creates) the ledger at path
func Open(path string) (*Ledger, error) {
	return OpenWithOptions(path, &pebble.Options{})
}

// OpenWithOptions opens the ledger with explicit pebble options
func OpenWithOptions(path string, opts *pebble.Options) (*Ledger, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return &Ledger{db: db, path: path, seq: make(map[string]int)}, nil
}

// Close closes the underlying DB
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *Ledger) handle() (*pebble.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}
	return l.db, nil
}

// CheckHealth performs a read to verify the DB is usable
func (l *Ledger) CheckHealth() error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	_, closer, err := db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}

// upperBound returns the smallest key greater than every key with prefix
func upperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// scan calls fn for every value under prefix, in key order
func (l *Ledger) scan(prefix string, fn func(key, value []byte) error) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound([]byte(prefix)),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iteration error: %w", err)
	}
	return nil
}
