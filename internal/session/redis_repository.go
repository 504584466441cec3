package session

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisRepository persists the session as JSON under a single key.
// No TTL: a stale session is still useful because its refresh token can
// mint a new access token long after expires_at has passed.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository creates a Redis-backed session repository. Key may be empty.
func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	if key == "" {
		key = "cloud:session"
	}
	return &RedisRepository{client: client, key: key}
}

func (r *RedisRepository) Load(ctx context.Context) (*CloudSession, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s CloudSession
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisRepository) Save(ctx context.Context, s *CloudSession) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, b, 0).Err()
}

func (r *RedisRepository) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
