package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"obpm/pkg/models"
)

const tokenKeyPrefix = "obpm:token:"

// RedisTokenStore keeps tokens in redis so multiple API instances share one
// session cache.
type RedisTokenStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisTokenStore(client redis.UniversalClient, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, ttl: ttl}
}

func (s *RedisTokenStore) UserForToken(ctx context.Context, token string) (*models.User, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnknownToken
		}

		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *RedisTokenStore) SaveToken(ctx context.Context, token string, user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, tokenKeyPrefix+token, raw, s.ttl).Err()
}
