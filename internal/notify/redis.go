package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis publishes each event as a JSON message on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis connects to redisURL (redis://host:port/db) and checks the
// connection with a ping.
func NewRedis(ctx context.Context, redisURL, channel string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Str("channel", channel).Msg("redis publisher connected")
	return &Redis{client: client, channel: channel}, nil
}

func (r *Redis) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
			return fmt.Errorf("redis publish: %w", err)
		}
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
