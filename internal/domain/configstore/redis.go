package configstore

import (
	"context"
	stderrors "errors"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"kumbara-device-go/internal/platform/errors"
)

type redisStore struct {
	client *redis.Client
	hash   string
	closed atomic.Bool
}

// NewRedis keeps the namespace as a single redis hash so Clear is one DEL.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, errors.New(errors.KindConfig, "configstore.redis", "redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New(errors.KindConfig, "configstore.redis", "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.KindStorage, "configstore.redis", "redis ping failed", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "prefs:"
	}
	return &redisStore{client: client, hash: prefix + cfg.namespace()}, nil
}

func (s *redisStore) Get(ctx context.Context, key, def string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	v, err := s.client.HGet(ctx, s.hash, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, "configstore.get", key, err)
	}
	return v, nil
}

func (s *redisStore) Put(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.client.HSet(ctx, s.hash, key, value).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "configstore.put", key, err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.client.Del(ctx, s.hash).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "configstore.clear", s.hash, err)
	}
	return nil
}

func (s *redisStore) Close(context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}
