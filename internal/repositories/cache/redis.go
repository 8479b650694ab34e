package cache

import (
	"context"
	"fmt"

	"propwallet/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClients opens one client per configured node. The lock manager
// uses all of them; the cache uses the first.
func NewRedisClients(cfg config.RedisConfig) []*redis.Client {
	clients := make([]*redis.Client, 0, len(cfg.Addrs))
	for _, addr := range cfg.Addrs {
		clients = append(clients, redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}))
	}
	return clients
}

// Universal widens clients for APIs that accept any go-redis client.
func Universal(clients []*redis.Client) []redis.UniversalClient {
	out := make([]redis.UniversalClient, len(clients))
	for i, c := range clients {
		out[i] = c
	}
	return out
}

// PingAll checks every node and reports the first failure.
func PingAll(ctx context.Context, clients []*redis.Client) error {
	for _, c := range clients {
		if err := c.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", c.Options().Addr, err)
		}
	}
	return nil
}

// CloseAll closes every client, returning the first error.
func CloseAll(clients []*redis.Client) error {
	var first error
	for _, c := range clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
