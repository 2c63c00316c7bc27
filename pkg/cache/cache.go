package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/orbitalcopilot/usage-service/internal/config"
	"github.com/orbitalcopilot/usage-service/internal/credits"
)

const reportCostKeyPrefix = "report_cost:"

// Cache wraps the Redis client. The service holds report credit costs here
// with a TTL so repeated lookups for the same report skip the upstream call.
// It is a best-effort cache, never a system of record.
type Cache struct {
	Client *redis.Client
}

// NewCache creates a new Redis cache client
func NewCache(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to Redis: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.Client.Close()
}

// Health checks cache health
func (c *Cache) Health(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// GetReportCost returns the cached credit cost for a report, if present.
func (c *Cache) GetReportCost(ctx context.Context, reportID string) (credits.Millicredits, string, bool, error) {
	val, err := c.Client.Get(ctx, reportCostKeyPrefix+reportID).Result()
	if err == redis.Nil {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("get report cost: %w", err)
	}

	// Stored as "<millicredits>|<report name>".
	rawCost, name, _ := strings.Cut(val, "|")
	millis, err := strconv.ParseInt(rawCost, 10, 64)
	if err != nil {
		return 0, "", false, fmt.Errorf("corrupt report cost entry: %w", err)
	}

	return credits.Millicredits(millis), name, true, nil
}

// SetReportCost caches the credit cost for a report with an expiration.
func (c *Cache) SetReportCost(ctx context.Context, reportID string, cost credits.Millicredits, name string, ttl time.Duration) error {
	val := strconv.FormatInt(int64(cost), 10) + "|" + name
	if err := c.Client.Set(ctx, reportCostKeyPrefix+reportID, val, ttl).Err(); err != nil {
		return fmt.Errorf("set report cost: %w", err)
	}
	return nil
}
