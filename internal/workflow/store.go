package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvocationNotFound is returned when no invocation exists for an id.
var ErrInvocationNotFound = errors.New("invocation not found")

// InvocationStore keeps invocation records between polls.
type InvocationStore interface {
	Save(ctx context.Context, inv *Invocation) error
	Load(ctx context.Context, id string) (*Invocation, error)
}

const invocationKeyPrefix = "invocation:"

// RedisStore keeps invocations as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis backed invocation store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, inv *Invocation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invocation: %w", err)
	}
	if err := s.client.Set(ctx, invocationKeyPrefix+inv.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save invocation: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Invocation, error) {
	payload, err := s.client.Get(ctx, invocationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invocation: %w", err)
	}
	var inv Invocation
	if err := json.Unmarshal(payload, &inv); err != nil {
		return nil, fmt.Errorf("decode invocation: %w", err)
	}
	return &inv, nil
}

// MemoryStore keeps invocations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, inv *Invocation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invocation: %w", err)
	}
	s.mu.Lock()
	s.entries[inv.ID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Invocation, error) {
	s.mu.RLock()
	payload, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvocationNotFound
	}
	var inv Invocation
	if err := json.Unmarshal(payload, &inv); err != nil {
		return nil, fmt.Errorf("decode invocation: %w", err)
	}
	return &inv, nil
}
