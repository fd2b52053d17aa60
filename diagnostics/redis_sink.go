package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes every Snapshot as JSON onto a Redis pub/sub
// channel, for subscribers that don't want a direct connection to this
// process — grounded on control_plane/store/redis.go's use of
// redis/go-redis/v9 for the backing store, here repurposed for a
// fire-and-forget publish instead of durable storage.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink connects to addr and returns a sink that publishes to
// channel. Connectivity is verified with a Ping before returning,
// matching NewRedisStore's fail-fast construction.
func NewRedisSink(ctx context.Context, addr, channel string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("diagnostics: redis ping failed: %w", err)
	}
	return &RedisSink{client: client, channel: channel}, nil
}

// Publish marshals s to JSON and publishes it on the configured channel.
func (s *RedisSink) Publish(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("diagnostics: marshaling snapshot: %w", err)
	}
	return s.client.Publish(ctx, s.channel, b).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
