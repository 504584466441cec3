package pairing

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each collection as a Redis hash, so upsert and
// delete-by-key are native operations:
//
//	<prefix>servers  field "<ip>:<port>"  -> PairedServer JSON
//	<prefix>entities field "<entityId>"   -> PairedEntity JSON
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-backed pairing repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "pairing:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) serversKey() string  { return r.prefix + "servers" }
func (r *RedisRepository) entitiesKey() string { return r.prefix + "entities" }

func (r *RedisRepository) UpsertServer(ctx context.Context, s *PairedServer) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.serversKey(), s.Key(), b).Err()
}

func (r *RedisRepository) Servers(ctx context.Context) (map[string]*PairedServer, error) {
	raw, err := r.client.HGetAll(ctx, r.serversKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*PairedServer, len(raw))
	for k, v := range raw {
		var s PairedServer
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return nil, err
		}
		out[k] = &s
	}
	return out, nil
}

func (r *RedisRepository) DeleteServer(ctx context.Context, id string) error {
	n, err := r.client.HDel(ctx, r.serversKey(), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) UpsertEntity(ctx context.Context, e *PairedEntity) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.entitiesKey(), e.Key(), b).Err()
}

func (r *RedisRepository) Entities(ctx context.Context) (map[string]*PairedEntity, error) {
	raw, err := r.client.HGetAll(ctx, r.entitiesKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*PairedEntity, len(raw))
	for k, v := range raw {
		var e PairedEntity
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, err
		}
		out[k] = &e
	}
	return out, nil
}

func (r *RedisRepository) DeleteEntity(ctx context.Context, id string) error {
	n, err := r.client.HDel(ctx, r.entitiesKey(), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
