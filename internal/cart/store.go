package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store persists carts between requests. Load returns an empty cart when none exists.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, userID uuid.UUID, c *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each cart as a JSON value with a sliding TTL.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID)
}

func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.client.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Cart{}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, c *Cart) error {
	if c.IsEmpty() {
		return s.Delete(ctx, userID)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store used when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID][]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID][]Item)}
}

func (s *MemoryStore) Load(_ context.Context, userID uuid.UUID) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	c := &Cart{}
	if len(items) > 0 {
		c.Items = append([]Item(nil), items...)
	}
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, userID uuid.UUID, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.IsEmpty() {
		delete(s.carts, userID)
		return nil
	}
	s.carts[userID] = append([]Item(nil), c.Items...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
