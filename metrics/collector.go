// Package metrics provides per-session stream metrics.
//
// The Collector accumulates counters while a watch session runs. It is a leaf
// package with no internal dependencies. Delivery counters are absorbed from
// policy.Stats when the session stops rather than recorded live, avoiding
// double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Connection lifecycle
	ConnectAttempts   int64            `json:"connect_attempts" yaml:"connect_attempts"`
	Connections       int64            `json:"connections" yaml:"connections"`
	ConnectFailures   int64            `json:"connect_failures" yaml:"connect_failures"`
	FailuresByKind    map[string]int64 `json:"failures_by_kind" yaml:"failures_by_kind"`
	StreamErrors      int64            `json:"stream_errors" yaml:"stream_errors"`
	StreamEnds        int64            `json:"stream_ends" yaml:"stream_ends"`
	BufferOverflows   int64            `json:"buffer_overflows" yaml:"buffer_overflows"`
	Reconnects        int64            `json:"reconnects" yaml:"reconnects"`

	// Demultiplexing
	BytesRead      int64 `json:"bytes_read" yaml:"bytes_read"`
	FramesEmitted  int64 `json:"frames_emitted" yaml:"frames_emitted"`
	FrameBytes     int64 `json:"frame_bytes" yaml:"frame_bytes"`
	PartsDiscarded int64 `json:"parts_discarded" yaml:"parts_discarded"`

	// Delivery (absorbed from policy.Stats at session end)
	EventsReceived  int64            `json:"events_received" yaml:"events_received"`
	EventsPublished int64            `json:"events_published" yaml:"events_published"`
	EventsDropped   int64            `json:"events_dropped" yaml:"events_dropped"`
	DroppedByType   map[string]int64 `json:"dropped_by_type" yaml:"dropped_by_type"`
	PublishErrors   int64            `json:"publish_errors" yaml:"publish_errors"`

	// Dimensions (informational, set at construction)
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Policy    string `json:"policy" yaml:"policy"`
	Adapter   string `json:"adapter" yaml:"adapter"`
	SessionID string `json:"session_id" yaml:"session_id"`
}

// Collector accumulates metrics during a single watch session.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	connectAttempts int64
	connections     int64
	connectFailures int64
	failuresByKind  map[string]int64
	streamErrors    int64
	streamEnds      int64
	bufferOverflows int64
	reconnects      int64

	bytesRead      int64
	framesEmitted  int64
	frameBytes     int64
	partsDiscarded int64

	eventsReceived  int64
	eventsPublished int64
	eventsDropped   int64
	droppedByType   map[string]int64
	publishErrors   int64

	endpoint  string
	policy    string
	adapter   string
	sessionID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(endpoint, policy, adapter, sessionID string) *Collector {
	return &Collector{
		failuresByKind: make(map[string]int64),
		droppedByType:  make(map[string]int64),
		endpoint:       endpoint,
		policy:         policy,
		adapter:        adapter,
		sessionID:      sessionID,
	}
}

// --- Connection lifecycle ---

// IncConnectAttempt records a connection attempt.
func (c *Collector) IncConnectAttempt() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectAttempts++
	c.mu.Unlock()
}

// IncConnection records an established connection with a negotiated boundary.
func (c *Collector) IncConnection() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connections++
	c.mu.Unlock()
}

// IncConnectFailure records a failed connection attempt of the given kind.
func (c *Collector) IncConnectFailure(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectFailures++
	c.failuresByKind[kind]++
	c.mu.Unlock()
}

// IncStreamError records a mid-stream transport failure.
func (c *Collector) IncStreamError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.streamErrors++
	c.mu.Unlock()
}

// IncStreamEnd records a stream that ended without error.
func (c *Collector) IncStreamEnd() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.streamEnds++
	c.mu.Unlock()
}

// IncBufferOverflow records a connection dropped for exceeding the buffer limit.
func (c *Collector) IncBufferOverflow() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bufferOverflows++
	c.mu.Unlock()
}

// IncReconnect records a completed backoff sleep.
func (c *Collector) IncReconnect() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
}

// --- Demultiplexing ---

// AddBytesRead records n bytes received from the network.
func (c *Collector) AddBytesRead(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.mu.Lock()
	c.bytesRead += int64(n)
	c.mu.Unlock()
}

// IncFrame records an emitted frame of the given size.
func (c *Collector) IncFrame(size int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesEmitted++
	c.frameBytes += int64(size)
	c.mu.Unlock()
}

// AddPartsDiscarded records malformed parts dropped by the demultiplexer.
func (c *Collector) AddPartsDiscarded(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.mu.Lock()
	c.partsDiscarded += int64(n)
	c.mu.Unlock()
}

// --- Delivery (absorbed from policy.Stats) ---

// AbsorbPolicyStats copies delivery counters into the collector.
// Called once when the session stops with the final policy stats snapshot.
// droppedByType keys are string-typed event types to keep this package free
// of dependencies on the types package.
func (c *Collector) AbsorbPolicyStats(total, published, dropped, errors int64, droppedByType map[string]int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsReceived = total
	c.eventsPublished = published
	c.eventsDropped = dropped
	c.publishErrors = errors
	c.droppedByType = make(map[string]int64, len(droppedByType))
	for k, v := range droppedByType {
		c.droppedByType[k] = v
	}
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make(map[string]int64, len(c.failuresByKind))
	for k, v := range c.failuresByKind {
		failures[k] = v
	}
	dropped := make(map[string]int64, len(c.droppedByType))
	for k, v := range c.droppedByType {
		dropped[k] = v
	}

	return Snapshot{
		ConnectAttempts:   c.connectAttempts,
		Connections:       c.connections,
		ConnectFailures:   c.connectFailures,
		FailuresByKind:    failures,
		StreamErrors:      c.streamErrors,
		StreamEnds:        c.streamEnds,
		BufferOverflows:   c.bufferOverflows,
		Reconnects:        c.reconnects,

		BytesRead:      c.bytesRead,
		FramesEmitted:  c.framesEmitted,
		FrameBytes:     c.frameBytes,
		PartsDiscarded: c.partsDiscarded,

		EventsReceived:  c.eventsReceived,
		EventsPublished: c.eventsPublished,
		EventsDropped:   c.eventsDropped,
		DroppedByType:   dropped,
		PublishErrors:   c.publishErrors,

		Endpoint:  c.endpoint,
		Policy:    c.policy,
		Adapter:   c.adapter,
		SessionID: c.sessionID,
	}
}
