package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each entry in a hash with a value field and a
// metadata field, so both get replaced in one transaction and expire
// together.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := s.GetWithMetadata(ctx, key)
	return value, err
}

func (s *RedisStore) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("reading key '%s': %w", key, err)
	}

	value, ok := fields["v"]
	if !ok {
		return nil, nil, ErrNotFound
	}

	var metadata json.RawMessage
	if m, ok := fields["m"]; ok && m != "" {
		metadata = json.RawMessage(m)
	}

	return []byte(value), metadata, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	// DEL followed by HSET in one transaction, so stale metadata
	// never survives an overwrite.
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(opts.Metadata) > 0 {
		pipe.HSet(ctx, key, "v", value, "m", []byte(opts.Metadata))
	} else {
		pipe.HSet(ctx, key, "v", value)
	}
	if opts.TTL > 0 {
		pipe.PExpire(ctx, key, opts.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing key '%s': %w", key, err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
