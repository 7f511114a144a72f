package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh:"

// RedisRefreshStore tracks live refresh tokens by id. A token is valid while
// its id is present; consuming it removes the id so each token rotates once.
type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func (s *RedisRefreshStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKeyPrefix+jti, userID, ttl).Err()
}

// Consume atomically removes jti and returns the user it belonged to.
func (s *RedisRefreshStore) Consume(ctx context.Context, jti string) (string, error) {
	userID, err := s.client.GetDel(ctx, refreshKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRefreshTokenRevoked
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, jti string) error {
	return s.client.Del(ctx, refreshKeyPrefix+jti).Err()
}
