// Package policy decides how driver events reach the adapter.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/xcoffee/types"
)

// Name identifies a delivery policy.
type Name string

// Policy names.
const (
	// NameStrict publishes every event synchronously.
	NameStrict Name = "strict"
	// NameLatest publishes asynchronously and keeps only the newest pending frame.
	NameLatest Name = "latest"
)

// ParseName validates a policy name.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case NameStrict, NameLatest:
		return Name(s), nil
	default:
		return "", fmt.Errorf("unknown policy %q: must be %q or %q", s, NameStrict, NameLatest)
	}
}

// ErrClosed is returned by Deliver after Close.
var ErrClosed = errors.New("policy closed")

// Policy delivers events to a sink.
//
// Rules:
//   - Only frames may be dropped; status and error events are always published
//   - Events are published in the order they were delivered
//   - Publish errors are counted and never stop the stream
type Policy interface {
	// Deliver hands an event to the policy. The policy owns ev afterwards.
	Deliver(ctx context.Context, ev *types.Event) error

	// Close publishes anything still pending and closes the sink.
	Close() error

	// Stats returns a consistent snapshot of delivery counters.
	Stats() Stats
}

// Stats represents policy observability metrics.
type Stats struct {
	// TotalEvents is the number of events delivered to the policy.
	TotalEvents int64
	// EventsPublished is the number of events the sink accepted.
	EventsPublished int64
	// EventsDropped is the number of events superseded before publishing.
	EventsDropped int64
	// DroppedByType maps event types to drop counts.
	DroppedByType map[types.EventType]int64
	// Errors is the number of failed publishes.
	Errors int64
	// Pending is the number of events waiting to be published.
	Pending int64
}

// DroppedByTypeStrings converts DroppedByType keys to plain strings.
func (s Stats) DroppedByTypeStrings() map[string]int64 {
	out := make(map[string]int64, len(s.DroppedByType))
	for k, v := range s.DroppedByType {
		out[string(k)] = v
	}
	return out
}

// statsRecorder is an internal helper for thread-safe stats management.
//
// Lock discipline:
//   - StrictPolicy uses the locking methods
//   - LatestPolicy uses the Locked methods only while holding LatestPolicy.mu,
//     keeping queue state and counters consistent
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		stats: Stats{DroppedByType: make(map[types.EventType]int64)},
	}
}

func (r *statsRecorder) incTotalEvents() {
	r.mu.Lock()
	r.stats.TotalEvents++
	r.mu.Unlock()
}

func (r *statsRecorder) incPublished() {
	r.mu.Lock()
	r.stats.EventsPublished++
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(0)
}

// --- Locked methods for LatestPolicy ---
// Caller must hold LatestPolicy.mu.

func (r *statsRecorder) incTotalEventsLocked() {
	r.stats.TotalEvents++
}

func (r *statsRecorder) incPublishedLocked() {
	r.stats.EventsPublished++
}

func (r *statsRecorder) incDroppedLocked(eventType types.EventType) {
	r.stats.EventsDropped++
	r.stats.DroppedByType[eventType]++
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

// snapshotLocked returns a copy of the stats with the given pending count.
func (r *statsRecorder) snapshotLocked(pending int64) Stats {
	s := r.stats
	s.Pending = pending
	s.DroppedByType = make(map[types.EventType]int64, len(r.stats.DroppedByType))
	for k, v := range r.stats.DroppedByType {
		s.DroppedByType[k] = v
	}
	return s
}
