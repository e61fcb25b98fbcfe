package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const denylistPrefix = "denylist:"

type RedisDenylist struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewRedisDenylist(client *redis.Client, logger *zap.Logger) *RedisDenylist {
	return &RedisDenylist{client: client, logger: logger}
}

func (d *RedisDenylist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistPrefix+jti, "1", ttl).Err(); err != nil {
		d.logger.Error("failed to deny-list token", zap.String("jti", jti), zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (d *RedisDenylist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// MemoryDenylist is the single-instance fallback used when no redis is configured.
type MemoryDenylist struct {
	mutex   sync.Mutex
	entries map[string]time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time)}
}

func (d *MemoryDenylist) Add(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (d *MemoryDenylist) Contains(_ context.Context, jti string) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	expiresAt, ok := d.entries[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(d.entries, jti)
		return false, nil
	}
	return true, nil
}

// CleanupStaleEntries drops expired ids; called by the app janitor.
func (d *MemoryDenylist) CleanupStaleEntries() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	now := time.Now()
	removed := 0
	for jti, expiresAt := range d.entries {
		if now.After(expiresAt) {
			delete(d.entries, jti)
			removed++
		}
	}
	return removed
}
