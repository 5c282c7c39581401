package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the backing Redis cannot be reached.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when the slot holds no session.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionCorrupt is returned when the stored blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

// DefaultSlot is the slot used when the caller does not identify a client.
const DefaultSlot = "local"

// Store is a Redis-backed session store holding at most one [User] per
// client slot.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace. A zero ttl keeps sessions until
// they are cleared.
func NewStore(redis redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Store) key(slot string) string {
	return s.prefix + ":" + normalizeSlot(slot)
}

func normalizeSlot(slot string) string {
	if slot == "" {
		return DefaultSlot
	}
	return slot
}

// Save replaces the session held in slot with u.
func (s *Store) Save(ctx context.Context, slot string, u *User) error {
	stored := *u
	stored.SavedAt = s.now().Unix()

	data, err := Encode(&stored)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(slot), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the session in slot, or [ErrSessionNotFound],
// [ErrSessionCorrupt] or [ErrRedisUnavailable].
func (s *Store) Get(ctx context.Context, slot string) (*User, error) {
	data, err := s.redis.Get(ctx, s.key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	u, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return u, nil
}

// Load is the fail-soft read used at startup. Any failure reports no session.
// A corrupt record is removed so the next load starts clean.
func (s *Store) Load(ctx context.Context, slot string) (*User, bool) {
	u, err := s.Get(ctx, slot)
	if err != nil {
		if errors.Is(err, ErrSessionCorrupt) {
			_ = s.Clear(ctx, slot)
		}
		return nil, false
	}
	return u, true
}

// Clear removes the session in slot. Clearing an empty slot is not an error.
func (s *Store) Clear(ctx context.Context, slot string) error {
	if err := s.redis.Del(ctx, s.key(slot)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
