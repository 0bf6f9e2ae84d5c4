package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platformbuilds/datadog-badges/internal/monitoring"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// ValkeyOptions configures a Valkey/Redis backed BadgeCache. One node means
// a single-node client; more than one means a cluster client.
type ValkeyOptions struct {
	Nodes    []string
	DB       int
	Password string
	TTL      time.Duration
}

// ValkeyCache shares badge decisions between replicas through Valkey.
// Redis errors are logged and treated as misses.
type ValkeyCache struct {
	client redis.UniversalClient
	logger logger.Logger
	ttl    time.Duration
}

// NewValkeyCache connects and pings the configured nodes.
func NewValkeyCache(opts ValkeyOptions, log logger.Logger) (*ValkeyCache, error) {
	if len(opts.Nodes) == 0 {
		return nil, errors.New("valkey cache requires at least one node")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var client redis.UniversalClient
	if len(opts.Nodes) == 1 {
		client = redis.NewClient(&redis.Options{
			Addr:         opts.Nodes[0],
			Password:     opts.Password,
			DB:           opts.DB,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		})
	} else {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        opts.Nodes,
			Password:     opts.Password,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Valkey %v: %w", opts.Nodes, err)
	}

	return newValkeyCacheWithClient(client, ttl, log), nil
}

func newValkeyCacheWithClient(client redis.UniversalClient, ttl time.Duration, log logger.Logger) *ValkeyCache {
	return &ValkeyCache{client: client, logger: log, ttl: ttl}
}

func (v *ValkeyCache) Get(ctx context.Context, key string) (Entry, bool) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		monitoring.RecordCacheOperation("get", "miss")
		return Entry{}, false
	}
	if err != nil {
		monitoring.RecordCacheOperation("get", "error")
		v.logger.Warn("Valkey get failed; treating as miss", "key", key, "error", err)
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		monitoring.RecordCacheOperation("get", "error")
		v.logger.Warn("Discarding undecodable badge cache entry", "key", key, "error", err)
		return Entry{}, false
	}
	monitoring.RecordCacheOperation("get", "hit")
	return e, true
}

func (v *ValkeyCache) Put(ctx context.Context, key string, e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		monitoring.RecordCacheOperation("set", "error")
		v.logger.Error("Failed to encode badge cache entry", "key", key, "error", err)
		return
	}
	if err := v.client.Set(ctx, key, data, v.ttl).Err(); err != nil {
		monitoring.RecordCacheOperation("set", "error")
		v.logger.Warn("Valkey set failed; badge not cached", "key", key, "error", err)
		return
	}
	monitoring.RecordCacheOperation("set", "success")
}

func (v *ValkeyCache) Len() int { return -1 }

func (v *ValkeyCache) HealthCheck(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *ValkeyCache) Close() error {
	return v.client.Close()
}
