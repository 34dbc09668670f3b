// Package dedup prevents re-delivery of already-relayed source records
// within a retention window. The Ledger interface is the stable contract;
// the in-memory implementation is the process-local default and the Redis
// implementation is the durable option for multi-instance deployments.
package dedup

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention is how long a processed id stays suppressed.
const DefaultRetention = 30 * 24 * time.Hour

// Stats summarizes the ledger's current state.
type Stats struct {
	Count     int    `json:"total_processed"`
	Timestamp string `json:"timestamp"`
}

// Ledger records which source ids have already been relayed.
type Ledger interface {
	// Seen reports whether id was processed within the retention window.
	Seen(ctx context.Context, id string) (bool, error)
	// MarkSeen records id as processed now.
	MarkSeen(ctx context.Context, id string) error
	// Reset clears all entries and returns how many were removed.
	Reset(ctx context.Context) (int, error)
	// Stats returns the current entry count.
	Stats(ctx context.Context) (Stats, error)
}

// MemoryLedger is an in-process Ledger. Expired entries are purged lazily
// before every read; there is no background sweep. Safe for concurrent use:
// Seen and MarkSeen around one id still race under parallel callers, so
// parallel orchestration must serialize per id.
type MemoryLedger struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	retention time.Duration
	now       func() time.Time
}

// NewMemoryLedger creates a MemoryLedger. retention <= 0 selects the
// 30-day default.
func NewMemoryLedger(retention time.Duration) *MemoryLedger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryLedger{
		entries:   make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

// SetClock overrides the time source (tests).
func (l *MemoryLedger) SetClock(now func() time.Time) {
	l.now = now
}

// purgeExpired removes entries older than the retention window.
// Caller must hold l.mu.
func (l *MemoryLedger) purgeExpired() {
	cutoff := l.now().Add(-l.retention)
	for id, at := range l.entries {
		if at.Before(cutoff) {
			delete(l.entries, id)
		}
	}
}

// Seen implements Ledger.
func (l *MemoryLedger) Seen(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeExpired()
	_, ok := l.entries[id]
	return ok, nil
}

// MarkSeen implements Ledger.
func (l *MemoryLedger) MarkSeen(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = l.now()
	return nil
}

// Reset implements Ledger.
func (l *MemoryLedger) Reset(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	l.entries = make(map[string]time.Time)
	return n, nil
}

// Stats implements Ledger.
func (l *MemoryLedger) Stats(_ context.Context) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeExpired()
	return Stats{
		Count:     len(l.entries),
		Timestamp: l.now().UTC().Format(time.RFC3339),
	}, nil
}
