package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/go-redis/redis/v8"
)

// ResponseCache holds the last loaded response of each session with the
// filter it was loaded for
type ResponseCache interface {
	Put(ctx context.Context, sessionID string, entry *models.CachedResponse) error
	Get(ctx context.Context, sessionID string) (*models.CachedResponse, error)
	Delete(ctx context.Context, sessionID string) error
}

type cachedResponse struct {
	entry    *models.CachedResponse
	cachedAt time.Time
}

// MemoryResponseCache is an in-process ResponseCache with TTL
type MemoryResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cachedResponse
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryResponseCache creates a cache whose entries expire after ttl
func NewMemoryResponseCache(ttl time.Duration) *MemoryResponseCache {
	return &MemoryResponseCache{
		entries: make(map[string]cachedResponse),
		ttl:     ttl,
		now:     time.Now,
	}
}

// isValid checks if an entry is still fresh
func (mc *MemoryResponseCache) isValid(e cachedResponse) bool {
	return mc.ttl <= 0 || mc.now().Sub(e.cachedAt) < mc.ttl
}

func (mc *MemoryResponseCache) Put(_ context.Context, sessionID string, entry *models.CachedResponse) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries[sessionID] = cachedResponse{entry: entry, cachedAt: mc.now()}
	return nil
}

func (mc *MemoryResponseCache) Get(_ context.Context, sessionID string) (*models.CachedResponse, error) {
	mc.mu.RLock()
	e, ok := mc.entries[sessionID]
	mc.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !mc.isValid(e) {
		mc.mu.Lock()
		delete(mc.entries, sessionID)
		mc.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return e.entry, nil
}

func (mc *MemoryResponseCache) Delete(_ context.Context, sessionID string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, sessionID)
	return nil
}

// Sweep drops expired entries and returns how many were removed
func (mc *MemoryResponseCache) Sweep() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	removed := 0
	for id, e := range mc.entries {
		if !mc.isValid(e) {
			delete(mc.entries, id)
			removed++
		}
	}
	return removed
}

// RedisResponseCache stores responses as JSON in redis so several server
// replicas can serve the same session
type RedisResponseCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisResponseCache wraps an existing client
func NewRedisResponseCache(client *redis.Client, ttl time.Duration) *RedisResponseCache {
	return &RedisResponseCache{
		client: client,
		ttl:    ttl,
		prefix: "signalsync:response:",
	}
}

func (rc *RedisResponseCache) key(sessionID string) string {
	return rc.prefix + sessionID
}

func (rc *RedisResponseCache) Put(ctx context.Context, sessionID string, entry *models.CachedResponse) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}
	return rc.client.Set(ctx, rc.key(sessionID), data, rc.ttl).Err()
}

func (rc *RedisResponseCache) Get(ctx context.Context, sessionID string) (*models.CachedResponse, error) {
	data, err := rc.client.Get(ctx, rc.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var entry models.CachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	return &entry, nil
}

func (rc *RedisResponseCache) Delete(ctx context.Context, sessionID string) error {
	return rc.client.Del(ctx, rc.key(sessionID)).Err()
}

// NewRedisClient connects to addr and verifies it with a ping
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
