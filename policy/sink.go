package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/xcoffee/types"
)

// Sink is the publishing side of a policy. Every adapter.Adapter is a Sink.
type Sink interface {
	// Publish sends one event downstream.
	Publish(ctx context.Context, ev *types.Event) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a test sink that records published events.
type StubSink struct {
	mu sync.Mutex

	// Published stores all accepted events in order.
	Published []*types.Event
	// Closed indicates whether Close was called.
	Closed bool
	// ErrorOnPublish, if non-nil, is returned by Publish.
	ErrorOnPublish error
	// Gate, if non-nil, blocks every Publish until a value is received.
	Gate chan struct{}
	// Entered, if non-nil, receives a value when Publish starts.
	Entered chan struct{}
}

// NewStubSink creates a new stub sink for testing.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// Publish records the event.
func (s *StubSink) Publish(ctx context.Context, ev *types.Event) error {
	if s.Entered != nil {
		s.Entered <- struct{}{}
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnPublish != nil {
		return s.ErrorOnPublish
	}
	s.Published = append(s.Published, ev)
	return nil
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// Events returns a copy of the published events.
func (s *StubSink) Events() []*types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*types.Event(nil), s.Published...)
}

// IsClosed reports whether Close was called.
func (s *StubSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Closed
}
