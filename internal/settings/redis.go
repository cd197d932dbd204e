package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	RedisKeyPrefix = "streamshell"
	RedisKeyHash   = "settings" // HASH. settings key -> value
	redisSeparator = ":"
)

type RedisStore struct {
	cl  *redis.Client
	key string
}

func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	cl := redis.NewClient(opt)
	if _, err := cl.Ping(ctx).Result(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreWithClient(cl), nil
}

func NewRedisStoreWithClient(cl *redis.Client) *RedisStore {
	return &RedisStore{
		cl:  cl,
		key: redisKey(RedisKeyPrefix, RedisKeyHash),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.cl.HGet(ctx, s.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.cl.HSet(ctx, s.key, key, value).Result(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if _, err := s.cl.HDel(ctx, s.key, key).Result(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.cl.Close()
}

func redisKey(keys ...string) string {
	return strings.Join(keys, redisSeparator)
}
