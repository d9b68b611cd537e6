package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/pkg/logger"
	"github.com/girijasivakumar242/IARS/pkg/retry"
	"github.com/girijasivakumar242/IARS/pkg/utils"
)

// Client holds the revoked-token blacklist. Keys are token digests so raw
// JWTs never land in redis.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	cfg := retry.DefaultConfig()
	cfg.Logger = logger.Log
	err := retry.Do(context.Background(), cfg, func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// BlacklistToken revokes a token for ttl, after which the token has expired
// on its own and the entry is pointless to keep.
func (c *Client) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	key := blacklistKey(token)
	if err := c.client.Set(ctx, key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	logger.Debug("Token blacklisted", zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}

func blacklistKey(token string) string {
	return "revoked:" + utils.HashString(token)
}
