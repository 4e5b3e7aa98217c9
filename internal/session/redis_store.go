package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps conversations in redis under chat:conv:<id> with a
// TTL renewed on every write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a store over an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func convKey(id string) string { return "chat:conv:" + id }

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Conversation, error) {
	raw, err := s.client.Get(ctx, convKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		// A corrupt payload is as good as expired.
		return nil, ErrNotFound
	}
	return &conv, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, convKey(conv.ID), raw, s.ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, convKey(id)).Err()
}
