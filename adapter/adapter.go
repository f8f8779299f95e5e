// Package adapter defines the boundary between the stream driver and the
// systems that consume its events.
//
// Adapters publish status, error and frame events downstream. The watch
// command owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/xcoffee/types"
)

// Type identifies an adapter implementation.
type Type string

// Adapter types.
const (
	// TypeConsole prints one human-readable line per event.
	TypeConsole Type = "console"
	// TypePipe writes ipc-framed msgpack events.
	TypePipe Type = "pipe"
	// TypeRedis publishes msgpack events to a Redis channel.
	TypeRedis Type = "redis"
	// TypeWebhook POSTs JSON events to a URL.
	TypeWebhook Type = "webhook"
)

// ParseType validates an adapter type name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeConsole, TypePipe, TypeRedis, TypeWebhook:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown adapter %q: must be console, pipe, redis, or webhook", s)
	}
}

// Adapter publishes stream events to a downstream system.
type Adapter interface {
	// Publish sends one event downstream.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *types.Event) error

	// Close releases adapter resources.
	Close() error
}

// BackoffBase is the delay before the first retry; it doubles per attempt.
var BackoffBase = 500 * time.Millisecond

// PermanentError marks a failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error { return e.Err }

// Retry calls attempt up to 1+retries times with exponential backoff between
// calls. A *PermanentError stops retrying immediately. name prefixes the
// returned error.
func Retry(ctx context.Context, name string, retries int, attempt func(ctx context.Context) error) error {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BackoffBase
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}

		var permanent *PermanentError
		if errors.As(lastErr, &permanent) {
			return fmt.Errorf("%s: non-retriable error: %w", name, permanent.Err)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
