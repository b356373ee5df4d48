package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Store persists dialogue contexts by session id.
type Store interface {
	// Load returns the session's token sequence, or nil for a new session.
	Load(ctx context.Context, sessionID string) ([]int, error)
	// Save replaces the session's token sequence.
	Save(ctx context.Context, sessionID string, ids []int) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps sessions in a size-bounded LRU that also evicts
// sessions idle for longer than the TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, []int]
}

// NewMemoryStore creates a store holding at most size sessions.
// A zero ttl disables idle eviction.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: expirable.NewLRU[string, []int](size, nil, ttl)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]int, error) {
	ids, ok := s.lru.Get(sessionID)
	if !ok {
		return nil, nil
	}
	return append([]int(nil), ids...), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, ids []int) error {
	s.lru.Add(sessionID, append([]int(nil), ids...))
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

// DefaultRedisKeyPrefix namespaces dialogue keys.
const DefaultRedisKeyPrefix = "college:dialogue:"

// RedisStore keeps each session under its own key. The TTL is refreshed
// on every save.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps keys forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisStoreFromURL parses a redis:// URL and connects.
func NewRedisStoreFromURL(ctx context.Context, url, prefix string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix, ttl), nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]int, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dialogue %q: %w", sessionID, err)
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode dialogue %q: %w", sessionID, err)
	}
	return ids, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, ids []int) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode dialogue %q: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save dialogue %q: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Compile-time checks
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
