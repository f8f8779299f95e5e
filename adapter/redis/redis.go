// Package redis implements a Redis pub/sub adapter.
//
// Publishes stream events as msgpack to a configurable Redis channel and,
// optionally, keeps the newest frame under a plain key so late subscribers
// can fetch the current picture without waiting for the next one.
// Retries with exponential backoff on connection errors.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/xcoffee/adapter"
	"github.com/pithecene-io/xcoffee/types"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "xcoffee:events"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: xcoffee:events).
	Channel string
	// LatestFrameKey, when set, receives the raw bytes of every frame.
	LatestFrameKey string
	// LatestFrameTTL expires LatestFrameKey when the stream stalls (0 = never).
	LatestFrameTTL time.Duration
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes stream events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.LatestFrameTTL < 0 {
		return nil, fmt.Errorf("latest frame ttl must be >= 0, got %s", cfg.LatestFrameTTL)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish sends the event as a msgpack PUBLISH to the configured channel.
// Frames also overwrite LatestFrameKey in the same transaction.
// Retries with exponential backoff on failures.
func (a *Adapter) Publish(ctx context.Context, event *types.Event) error {
	body, err := msgpack.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	storeFrame := a.config.LatestFrameKey != "" && event.Frame != nil

	return adapter.Retry(ctx, "redis", a.config.Retries, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()

		if !storeFrame {
			return a.client.Publish(publishCtx, a.config.Channel, body).Err()
		}
		_, err := a.client.TxPipelined(publishCtx, func(pipe goredis.Pipeliner) error {
			pipe.Set(publishCtx, a.config.LatestFrameKey, event.Frame.Data, a.config.LatestFrameTTL)
			pipe.Publish(publishCtx, a.config.Channel, body)
			return nil
		})
		return err
	})
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
