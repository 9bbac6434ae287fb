package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	publicLocationsKey = "map:public_locations"
	statsKey           = "map:stats"
	defaultCacheTTL    = 60 * time.Second
)

// Cache fronts the read-heavy map queries with short-lived Redis entries.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a map cache from a Redis URL.
func NewCache(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewCacheWithClient(client, ttl), nil
}

// NewCacheWithClient creates a map cache from an existing Redis client.
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) getPublicLocations(ctx context.Context) ([]UserLocation, bool) {
	payload, err := c.client.Get(ctx, publicLocationsKey).Result()
	if err != nil {
		return nil, false
	}
	var locations []UserLocation
	if err := json.Unmarshal([]byte(payload), &locations); err != nil {
		return nil, false
	}
	return locations, true
}

func (c *Cache) setPublicLocations(ctx context.Context, locations []UserLocation) {
	payload, err := json.Marshal(locations)
	if err != nil {
		return
	}
	c.client.Set(ctx, publicLocationsKey, payload, c.ttl)
}

func (c *Cache) getStats(ctx context.Context) (Stats, bool) {
	payload, err := c.client.Get(ctx, statsKey).Result()
	if err != nil {
		return Stats{}, false
	}
	var stats Stats
	if err := json.Unmarshal([]byte(payload), &stats); err != nil {
		return Stats{}, false
	}
	return stats, true
}

func (c *Cache) setStats(ctx context.Context, stats Stats) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	c.client.Set(ctx, statsKey, payload, c.ttl)
}

func (c *Cache) invalidate(ctx context.Context) {
	c.client.Del(ctx, publicLocationsKey, statsKey)
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
