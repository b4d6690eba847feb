// Package redisx builds Redis connections from a REDIS_URL.
// This is part of the platform layer and contains no business logic.
package redisx

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ParseOptions parses a redis:// or rediss:// URL. tlsInsecure skips
// certificate verification for managed Redis with self-signed certs.
func ParseOptions(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.TLSConfig != nil && tlsInsecure {
		opts.TLSConfig.InsecureSkipVerify = true //nolint:gosec // opt-in via REDIS_TLS_INSECURE
	}
	return opts, nil
}

// NewClient opens a go-redis client and pings it.
func NewClient(ctx context.Context, redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opts, err := ParseOptions(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// AsynqOpt converts a REDIS_URL into the connection option asynq expects.
func AsynqOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opts, err := ParseOptions(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	var tlsConfig *tls.Config
	if opts.TLSConfig != nil {
		tlsConfig = opts.TLSConfig
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: tlsConfig,
	}, nil
}
