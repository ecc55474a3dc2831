package reporter

import (
	"context"
	"fmt"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
	"github.com/redis/go-redis/v9"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisReporter publishes each record on a pub/sub channel.
type RedisReporter struct {
	client  publisher
	closer  func() error
	channel string
}

func NewRedisReporter(url, channel string) (*RedisReporter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return &RedisReporter{client: client, closer: client.Close, channel: channel}, nil
}

func (r *RedisReporter) Report(ctx context.Context, rec dm.ResultRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *RedisReporter) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
