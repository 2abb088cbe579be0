package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// fakeRedis is an in-memory RedisClient built on go-redis test result constructors.
type fakeRedis struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, 24*time.Hour)
	userID := uuid.New()

	c := &Cart{}
	c.Add(newItem(uuid.New(), uuid.New(), "2026-10-20", 12500))
	c.Add(c.Items[0])

	if err := store.Save(ctx, userID, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if rdb.ttls["cart:"+userID.String()] != 24*time.Hour {
		t.Errorf("ttl: got %v", rdb.ttls["cart:"+userID.String()])
	}

	loaded, err := store.Load(ctx, userID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Quantity != 2 {
		t.Fatalf("loaded items: %+v", loaded.Items)
	}
	if !loaded.TotalAmount().Equal(decimal.NewFromInt(25000)) {
		t.Errorf("total: got %s, want 25000", loaded.TotalAmount())
	}
}

func TestRedisStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewRedisStore(newFakeRedis(), time.Hour)
	c, err := store.Load(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.IsEmpty() {
		t.Error("expected empty cart")
	}
}

func TestRedisStore_LoadError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = errors.New("connection refused")
	store := NewRedisStore(rdb, time.Hour)
	if _, err := store.Load(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedisStore_SaveEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, time.Hour)
	userID := uuid.New()

	c := &Cart{}
	c.Add(newItem(uuid.New(), uuid.New(), "2026-10-20", 10000))
	if err := store.Save(ctx, userID, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	c.Clear()
	if err := store.Save(ctx, userID, c); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if _, ok := rdb.data["cart:"+userID.String()]; ok {
		t.Error("empty cart should remove the key")
	}
}

func TestMemoryStore_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	userID := uuid.New()

	c := &Cart{}
	c.Add(newItem(uuid.New(), uuid.New(), "2026-10-20", 10000))
	if err := store.Save(ctx, userID, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	c.Items[0].Quantity = 99

	loaded, _ := store.Load(ctx, userID)
	if loaded.Items[0].Quantity != 1 {
		t.Errorf("stored cart mutated through caller: quantity %d", loaded.Items[0].Quantity)
	}

	if err := store.Delete(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loaded, _ = store.Load(ctx, userID)
	if !loaded.IsEmpty() {
		t.Error("expected empty cart after delete")
	}
}
