// Package store はValkeyへのデータアクセスを提供する。
package store

import (
	"context"
	"fmt"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/pkg/valkey"
	"github.com/redis/go-redis/v9"
)

// ValkeyClient はValkeyクライアントをラップする。
type ValkeyClient struct {
	client *redis.Client
}

// NewValkeyClient は新しいValkeyClientを生成する。
func NewValkeyClient(cfg *config.Config) (*ValkeyClient, error) {
	opts := valkey.AuthzOptions().
		WithAddr(cfg.ValkeyAddr()).
		WithPassword(cfg.RedisPass).
		WithTimeouts(config.ValkeyConnectTimeout, config.ValkeyCommandTimeout, config.ValkeyCommandTimeout).
		WithPool(config.ValkeyPoolSize, 4)

	client, err := valkey.NewClient(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}
	return &ValkeyClient{client: client}, nil
}

// NewValkeyClientFrom は既存のredis.Clientをラップする。
func NewValkeyClientFrom(client *redis.Client) *ValkeyClient {
	return &ValkeyClient{client: client}
}

// Close は接続を閉じる。
func (v *ValkeyClient) Close() error {
	return v.client.Close()
}

// Client は内部のredis.Clientを返す。
func (v *ValkeyClient) Client() *redis.Client {
	return v.client
}
