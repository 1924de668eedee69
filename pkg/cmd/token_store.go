package cmd

import (
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"obpm/pkg/auth"
)

const tokenTTL = 24 * time.Hour

func NewTokenStore(tokenStoreURL string) (auth.TokenStore, error) {
	if !strings.HasPrefix(tokenStoreURL, "redis://") {
		return auth.NewMemoryTokenStore(), nil
	}

	opts, err := redis.ParseURL(tokenStoreURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token store url: %w", err)
	}

	return auth.NewRedisTokenStore(redis.NewClient(opts), tokenTTL), nil
}
