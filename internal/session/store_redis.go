package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "console:session:"

type redisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore keeps the record under one key per profile, so a single SET
// replaces credential and identity together. The client is owned by the caller.
func NewRedisStore(client redis.Cmdable, profile string) Store {
	if profile == "" {
		profile = "default"
	}
	return &redisStore{client: client, key: redisKeyPrefix + profile}
}

func (s *redisStore) Load(ctx context.Context) (Record, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("redis get session: %w", err)
	}
	return decodeRecord(raw)
}

func (s *redisStore) Save(ctx context.Context, r Record) error {
	if !r.Valid() {
		return errors.New("session: refusing to save a record without a token")
	}
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}
	// No TTL: expiry is discovered reactively when the backend rejects the token.
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *redisStore) Close() error { return nil }
