package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is a Ledger backed by Redis key TTLs: the retention window
// is the key expiry, so there is no purge pass at all, and entries survive
// process restarts.
type RedisLedger struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisLedger creates a RedisLedger. prefix namespaces the keys
// (defaults to "relay:seen:"); retention <= 0 selects the 30-day default.
func NewRedisLedger(client *redis.Client, prefix string, retention time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "relay:seen:"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisLedger{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

func (l *RedisLedger) key(id string) string {
	return l.prefix + id
}

// Seen implements Ledger.
func (l *RedisLedger) Seen(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: exists %s: %w", id, err)
	}
	return n > 0, nil
}

// MarkSeen implements Ledger.
func (l *RedisLedger) MarkSeen(ctx context.Context, id string) error {
	if err := l.client.Set(ctx, l.key(id), "1", l.retention).Err(); err != nil {
		return fmt.Errorf("dedup: mark %s: %w", id, err)
	}
	return nil
}

// Reset implements Ledger. It scans the key prefix rather than flushing
// the database, so an instance sharing Redis with other services only
// clears its own entries.
func (l *RedisLedger) Reset(ctx context.Context) (int, error) {
	var removed int
	iter := l.client.Scan(ctx, 0, l.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("dedup: reset: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("dedup: reset scan: %w", err)
	}
	return removed, nil
}

// Stats implements Ledger.
func (l *RedisLedger) Stats(ctx context.Context) (Stats, error) {
	var count int
	iter := l.client.Scan(ctx, 0, l.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("dedup: stats scan: %w", err)
	}
	return Stats{
		Count:     count,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
