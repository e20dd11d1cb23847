package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const providerWhatsApp = "whatsapp"

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records webhook message ids that were already handled.
type ProcessedStore struct {
	pool rowQuerier
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

func newProcessedStoreWithExec(exec rowQuerier) *ProcessedStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &ProcessedStore{pool: exec}
}

// AlreadyProcessed checks if we've seen this message id.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, messageID string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE provider = $1 AND event_id = $2`
	var exists int
	if err := s.pool.QueryRow(ctx, query, providerWhatsApp, messageID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts a message id, returning false if it already exists.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, providerWhatsApp, messageID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// RedisProcessedStore marks message ids with SETNX and a TTL.
type RedisProcessedStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedStore(client *redis.Client, ttl time.Duration) *RedisProcessedStore {
	if client == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisProcessedStore{client: client, ttl: ttl}
}

func (s *RedisProcessedStore) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, "processed:"+providerWhatsApp+":"+messageID, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}

// MemoryProcessedStore keeps message ids in process memory until they expire.
type MemoryProcessedStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	seen   map[string]time.Time
	now    func() time.Time
	lastGC time.Time
}

func NewMemoryProcessedStore(ttl time.Duration) *MemoryProcessedStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryProcessedStore{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastGC) > s.ttl {
		for id, exp := range s.seen {
			if now.After(exp) {
				delete(s.seen, id)
			}
		}
		s.lastGC = now
	}
	if exp, ok := s.seen[messageID]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[messageID] = now.Add(s.ttl)
	return true, nil
}
