package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sitepulse/api/config"
	"sitepulse/api/logger"
	"sitepulse/api/models"
)

const (
	DefaultKey        = "sitepulse:dashboard:snapshot"
	operationTimeout  = 2 * time.Second
	connectionTimeout = 5 * time.Second
)

var ErrCacheConnection = errors.New("cache: connection error")

// kv is the subset of redis.Cmdable the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// DashboardCache stores one dashboard snapshot as JSON under a fixed key.
type DashboardCache struct {
	client kv
	closer func() error
	key    string
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisDashboardCache connects to Redis and verifies the connection.
func NewRedisDashboardCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*DashboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  connectionTimeout,
		ReadTimeout:  operationTimeout,
		WriteTimeout: operationTimeout,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	log.Info("connected to Redis dashboard cache", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.CacheTTL))
	return newDashboardCache(client, client.Close, cfg.CacheTTL, log), nil
}

func newDashboardCache(client kv, closer func() error, ttl time.Duration, log *logger.Logger) *DashboardCache {
	return &DashboardCache{client: client, closer: closer, key: DefaultKey, ttl: ttl, log: log}
}

// Get returns the cached snapshot. A miss is (nil, false, nil).
func (c *DashboardCache) Get(ctx context.Context) (*models.Dashboard, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var d models.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &d, true, nil
}

func (c *DashboardCache) Set(ctx context.Context, d *models.Dashboard) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	c.log.Debug("dashboard snapshot cached", zap.Duration("ttl", c.ttl))
	return nil
}

func (c *DashboardCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
