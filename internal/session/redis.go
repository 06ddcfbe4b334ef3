package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
)

// NewRedisClient parses cfg.URL, applies the timeouts and pings the server.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ReadTimeout = time.Duration(cfg.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(cfg.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(cfg.DialTimeout) * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps state as JSON under "<prefix>:chat:state:<key>". Every
// Put refreshes the TTL, so idle sessions expire on their own.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a RedisStore. ttl <= 0 stores without expiry.
func NewRedisStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(k string) string {
	if r.prefix == "" {
		return "chat:state:" + k
	}
	return r.prefix + ":chat:state:" + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (dialogue.State, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dialogue.Initial(), nil
	}
	if err != nil {
		return dialogue.State{}, fmt.Errorf("redis get state: %w", err)
	}
	return decodeState(raw)
}

func (r *RedisStore) Put(ctx context.Context, key string, st dialogue.State) error {
	raw, err := encodeState(st)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}
