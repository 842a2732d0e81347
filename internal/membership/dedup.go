package membership

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptDeduper tracks in-flight payment attempts per user, so a user who
// keeps messaging while a payment page is open gets the same page back
// instead of a fresh gateway request each time.
type AttemptDeduper interface {
	// Active reports whether a payment attempt for the user is still in flight.
	Active(ctx context.Context, userID int64) (bool, error)
	// Mark records a new in-flight attempt.
	Mark(ctx context.Context, userID int64) error
}

type redisAttemptDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisAttemptDeduper) key(userID int64) string {
	return d.prefix + ":" + strconv.FormatInt(userID, 10)
}

func (d *redisAttemptDeduper) Active(ctx context.Context, userID int64) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisAttemptDeduper) Mark(ctx context.Context, userID int64) error {
	return d.client.Set(ctx, d.key(userID), "1", d.ttl).Err()
}

type memoryAttemptDeduper struct {
	mu     sync.Mutex
	marked map[int64]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryAttemptDeduper(ttl time.Duration) *memoryAttemptDeduper {
	now := time.Now()
	return &memoryAttemptDeduper{
		marked: make(map[int64]time.Time),
		ttl:    ttl,
		nextGC: now.Add(ttl),
	}
}

func (d *memoryAttemptDeduper) Active(_ context.Context, userID int64) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.marked[userID]
	return ok && exp.After(now), nil
}

func (d *memoryAttemptDeduper) Mark(_ context.Context, userID int64) error {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.marked[userID] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for id, exp := range d.marked {
			if exp.Before(now) {
				delete(d.marked, id)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}
	return nil
}

// NewAttemptDeduper builds a Redis deduper and falls back to in-memory on failure.
func NewAttemptDeduper(addr, pass string, db int, ttl time.Duration) (AttemptDeduper, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if addr == "" {
		return newMemoryAttemptDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryAttemptDeduper(ttl), err
	}

	return &redisAttemptDeduper{
		client: client,
		prefix: "pay:attempt",
		ttl:    ttl,
	}, nil
}
