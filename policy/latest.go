package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/types"
)

// LatestConfig configures a LatestPolicy.
type LatestConfig struct {
	// Logger is an optional logger for publish failures.
	Logger *log.Logger
}

// LatestPolicy publishes from a background goroutine so a slow adapter never
// stalls the stream.
//
// While the publisher is busy, at most one frame waits in the queue: a newer
// frame replaces the pending one and the old frame counts as dropped. The
// replacement frame takes the tail of the queue so ordering relative to
// status and error events is preserved. Status and error events are never
// dropped.
//
// Thread safety:
//   - mu guards the queue, the closed flag and the stats
//   - the publisher goroutine holds mu only to pop and to record results
type LatestPolicy struct {
	sink   Sink
	logger *log.Logger

	mu     sync.Mutex
	queue  []*types.Event
	closed bool
	stats  *statsRecorder

	notify chan struct{}
	done   chan struct{}

	// ctx bounds in-flight publishes; cancelled after the final drain.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// NewLatestPolicy creates a latest policy and starts its publisher.
func NewLatestPolicy(sink Sink, config LatestConfig) *LatestPolicy {
	ctx, cancel := context.WithCancel(context.Background())
	p := &LatestPolicy{
		sink:   sink,
		logger: config.Logger,
		stats:  newStatsRecorder(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go p.publishLoop()
	return p
}

// Deliver enqueues ev and returns without waiting for the adapter.
func (p *LatestPolicy) Deliver(_ context.Context, ev *types.Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	p.stats.incTotalEventsLocked()
	if ev.Type.IsDroppable() {
		p.dropPendingLocked(ev.Type)
	}
	p.queue = append(p.queue, ev)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// dropPendingLocked removes a queued event of the given droppable type.
// At most one can be queued. Caller must hold mu.
func (p *LatestPolicy) dropPendingLocked(eventType types.EventType) {
	for i, queued := range p.queue {
		if queued.Type != eventType {
			continue
		}
		copy(p.queue[i:], p.queue[i+1:])
		p.queue[len(p.queue)-1] = nil
		p.queue = p.queue[:len(p.queue)-1]
		p.stats.incDroppedLocked(eventType)
		return
	}
}

func (p *LatestPolicy) publishLoop() {
	defer close(p.done)

	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			<-p.notify
			continue
		}
		ev := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		err := p.sink.Publish(p.ctx, ev)

		p.mu.Lock()
		if err != nil {
			p.stats.incErrorsLocked()
		} else {
			p.stats.incPublishedLocked()
		}
		p.mu.Unlock()

		if err != nil && p.logger != nil {
			p.logger.Warn("publish failed", map[string]any{
				"seq":    ev.Seq,
				"type":   string(ev.Type),
				"error":  err.Error(),
				"policy": string(NameLatest),
			})
		}
	}
}

// Close stops accepting events, publishes what is still queued and closes
// the sink. Subsequent calls return the first result.
func (p *LatestPolicy) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		select {
		case p.notify <- struct{}{}:
		default:
		}
		<-p.done
		p.cancel()
		p.closeErr = p.sink.Close()
	})
	return p.closeErr
}

// Stats returns policy statistics. Pending is the current queue length.
func (p *LatestPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats.snapshotLocked(int64(len(p.queue)))
}

// Verify LatestPolicy implements Policy.
var _ Policy = (*LatestPolicy)(nil)
