package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedSessionPrefix = "revoked_session:"

// RedisDenylist records revoked session token IDs until the token would have
// expired anyway.
type RedisDenylist struct {
	client *redis.Client
}

// NewRedisClient connects to Redis. TLS is enabled when a password is set.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	}
	if password != "" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// NewRedisDenylist creates a new RedisDenylist.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

// Revoke denies tokenID for ttl. Tokens that are already expired need no entry.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, revokedSessionPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, revokedSessionPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("checking revoked session: %w", err)
	}
	return n > 0, nil
}
