package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	repo "storefront/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "session:"
	dialTimeout = 5 * time.Second
)

// RedisClientConfig はRedis接続設定
type RedisClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// 接続してPingが通ったクライアントを返す
func NewRedisClient(ctx context.Context, cfg RedisClientConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(dialCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// セッションごとにHASHで保存し、書き込みのたびにTTLを延ばす
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) hashKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string, key string) (string, error) {
	v, err := s.client.HGet(ctx, s.hashKey(sessionID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID string, key string, value string) error {
	hk := s.hashKey(sessionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hk, key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, hk, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(sessionID), key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}
