package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces all catalog listing cache entries.
const keyPrefix = "catalog:list:"

// CatalogCache is a read-through Redis cache for catalog listing responses.
// Entries expire after the configured TTL and the whole namespace is dropped
// whenever the catalog mutates.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalogCache creates a catalog cache with the given TTL.
func NewCatalogCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key derives a stable cache key from the serialized filter parameters.
func Key(filter any) string {
	raw, err := json.Marshal(filter)
	if err != nil {
		return keyPrefix + "unkeyed"
	}
	sum := sha256.Sum256(raw)
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// Get loads a cached listing into dest. The second return value reports
// whether the key was present.
func (c *CatalogCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}

	return true, nil
}

// Set stores a listing under the given key with the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	return nil
}

// InvalidateAll drops every cached listing. Called after any catalog mutation.
func (c *CatalogCache) InvalidateAll(ctx context.Context) error {
	var (
		cursor uint64
		keys   []string
	)

	for {
		batch, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}

	c.logger.DebugContext(ctx, "catalog cache invalidated",
		slog.Int("keys", len(keys)),
	)

	return nil
}
