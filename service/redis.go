package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/chaos-io/maskswap/config"
	"github.com/chaos-io/maskswap/model"
	"github.com/chaos-io/maskswap/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "segment:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(cfg *config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns nil, nil on a cache miss.
func (s *RedisCache) Get(ctx context.Context, key string) (*model.SegmentResponse, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var resp model.SegmentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		util.Logger.Error("failed to unmarshal cached result", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return &resp, nil
}

func (s *RedisCache) Set(ctx context.Context, key string, resp *model.SegmentResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err()
}

func (s *RedisCache) Close() error {
	return s.client.Close()
}
