package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qvt-engine/internal/domain"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss 聚合缓存未命中
var ErrCacheMiss = errors.New("aggregate cache miss")

// KVStore 聚合缓存底层的 KV 抽象（单元测试里用内存实现替换 Redis）
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore 基于 go-redis 的 KV 实现
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// AggregateCache 团队聚合缓存
// 键构造和 JSON 编解码集中在这里：缓存里只会出现整个聚合对象，
// 匿名性门禁在序列化之前已经剥掉逐轴统计，缓存内容天然合规
type AggregateCache struct {
	kv     KVStore
	prefix string
	ttl    time.Duration
}

// NewAggregateCache 创建聚合缓存
func NewAggregateCache(kv KVStore, prefix string, ttl time.Duration) *AggregateCache {
	return &AggregateCache{kv: kv, prefix: prefix, ttl: ttl}
}

// Get 读取缓存的聚合；未命中返回 ErrCacheMiss
func (c *AggregateCache) Get(ctx context.Context, teamID string, window domain.DateWindow) (*domain.TeamAggregate, error) {
	val, err := c.kv.Get(ctx, c.key(teamID, window))
	if err != nil {
		return nil, err
	}

	var aggregate domain.TeamAggregate
	if err := json.Unmarshal([]byte(val), &aggregate); err != nil {
		return nil, fmt.Errorf("corrupt aggregate cache entry: %w", err)
	}
	return &aggregate, nil
}

// Put 写入聚合（TTL 由配置决定，0 表示不过期）
func (c *AggregateCache) Put(ctx context.Context, aggregate *domain.TeamAggregate) error {
	data, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}
	return c.kv.Set(ctx, c.key(aggregate.TeamID, aggregate.Window()), string(data), c.ttl)
}

func (c *AggregateCache) key(teamID string, window domain.DateWindow) string {
	return fmt.Sprintf("%s%s:aggregate:%s:%s", c.prefix, teamID, window.Start, window.End)
}
