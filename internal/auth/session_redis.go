package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ticketKeyPrefix = "session:ticket:"

// RedisTicketStore keeps session tickets in Redis. Unlike the memory store,
// unconsumed tickets survive a process restart for the remainder of their
// TTL, and Redis evicts expired tickets on its own (no reaper needed).
type RedisTicketStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisTicketStore creates a Redis-backed ticket store.
func NewRedisTicketStore(client *redis.Client) *RedisTicketStore {
	return &RedisTicketStore{
		client: client,
		now:    time.Now,
	}
}

// Put stores the ticket with a TTL matching its expiry.
func (s *RedisTicketStore) Put(ctx context.Context, id string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("ticket %s already expired", id)
	}

	if err := s.client.Set(ctx, ticketKeyPrefix+id, expiresAt.UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("store session ticket: %w", err)
	}
	return nil
}

// Take atomically removes the ticket via GETDEL and returns its expiry.
func (s *RedisTicketStore) Take(ctx context.Context, id string) (time.Time, bool, error) {
	val, err := s.client.GetDel(ctx, ticketKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("take session ticket: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse session ticket expiry: %w", err)
	}
	return expiresAt, true, nil
}
