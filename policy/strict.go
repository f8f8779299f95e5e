package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/xcoffee/types"
)

// StrictPolicy publishes each event before Deliver returns.
//
//   - No buffering and no drops
//   - Backpressure: the driver blocks on adapter latency
//   - Publish errors are returned to the caller and counted
type StrictPolicy struct {
	sink  Sink
	stats *statsRecorder

	closeOnce sync.Once
	closeErr  error
}

// NewStrictPolicy creates a strict policy publishing to sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: newStatsRecorder()}
}

// Deliver publishes ev immediately.
func (p *StrictPolicy) Deliver(ctx context.Context, ev *types.Event) error {
	p.stats.incTotalEvents()

	if err := p.sink.Publish(ctx, ev); err != nil {
		p.stats.incErrors()
		return err
	}

	p.stats.incPublished()
	return nil
}

// Close closes the underlying sink. Subsequent calls return the first result.
func (p *StrictPolicy) Close() error {
	p.closeOnce.Do(func() { p.closeErr = p.sink.Close() })
	return p.closeErr
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Verify StrictPolicy implements Policy.
var _ Policy = (*StrictPolicy)(nil)
