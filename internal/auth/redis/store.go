package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/frahmantamala/salon-portal/internal/auth"
)

// SessionStore keeps client session keys in redis under "<prefix><owner>:<key>".
// A zero ttl stores keys without expiry.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewSessionStore(client goredis.UniversalClient, prefix, owner string, ttl time.Duration) auth.Store {
	return &SessionStore{client: client, prefix: prefix + owner + ":", ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.client.Del(ctx, full...).Err()
}
