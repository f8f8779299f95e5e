// Package stream drives an MJPEG multipart stream: it connects, demultiplexes
// frames and reconnects after every failure.
//
// The driver is a state machine with three states (Connecting, Streaming,
// Sleeping) and no terminal state. Step advances it by one transition and
// returns at most one event; Run loops Step until its context ends.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/metrics"
	"github.com/pithecene-io/xcoffee/mjpeg"
	"github.com/pithecene-io/xcoffee/types"
)

// DefaultReconnectDelay is the wait between a failure and the next attempt.
const DefaultReconnectDelay = 5 * time.Second

// DefaultReadSize is the chunk size of a single body read.
const DefaultReadSize = 32 * 1024

// Status texts emitted by the driver.
const (
	StatusConnected    = "Connected. Waiting for frame..."
	StatusReconnecting = "Reconnecting..."
)

// Config configures a Driver.
type Config struct {
	// Endpoint is the stream URL (required).
	Endpoint string
	// SessionID is stamped on every event Run delivers.
	SessionID string
	// ReconnectDelay is the Sleeping duration (default 5s).
	ReconnectDelay time.Duration
	// MaxBufferSize bounds the accumulation buffer (default 16 MiB).
	MaxBufferSize int
	// ReadSize is the size of one body read (default 32 KiB).
	ReadSize int
	// Opener establishes connections (default: Connector over http.Client).
	Opener Opener
	// Logger receives lifecycle logs (default: discard).
	Logger *log.Logger
	// Metrics receives counters. Nil is allowed.
	Metrics *metrics.Collector
	// Now returns the current time for event timestamps (default time.Now).
	Now func() time.Time
}

// Handler receives every event Run produces, in order. The event and its
// frame data are owned by the handler once delivered.
type Handler func(ctx context.Context, event *types.Event)

// Driver runs the connect/stream/sleep state machine for one endpoint.
// A Driver is used by a single goroutine.
type Driver struct {
	cfg     Config
	readBuf []byte
	seq     int64
	frames  int64
}

// NewDriver validates cfg, applies defaults and returns a Driver.
func NewDriver(cfg Config) (*Driver, error) {
	if err := types.ValidateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid driver config: %w", err)
	}
	if cfg.ReconnectDelay < 0 {
		return nil, fmt.Errorf("invalid driver config: reconnect delay must be >= 0, got %s", cfg.ReconnectDelay)
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = mjpeg.DefaultMaxBufferSize
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = DefaultReadSize
	}
	if cfg.Opener == nil {
		cfg.Opener = NewConnector(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Driver{
		cfg:     cfg,
		readBuf: make([]byte, cfg.ReadSize),
	}, nil
}

// Step performs one transition from s and returns the event it produced
// together with the next state. The event is zero when the transition is
// silent, which only happens once ctx is done; the returned state is then
// Connecting and any connection held by s has been closed.
func (d *Driver) Step(ctx context.Context, s State) (types.Event, State) {
	if ctx.Err() != nil {
		CloseState(s)
		return types.Event{}, Connecting{}
	}

	switch st := s.(type) {
	case Connecting:
		return d.connect(ctx)
	case Streaming:
		return d.stream(ctx, st)
	case Sleeping:
		return d.sleep(ctx, st)
	default:
		panic(fmt.Sprintf("stream: unknown state %T", s))
	}
}

// Run drives the state machine from Connecting until ctx is done, delivering
// every event to handler. Events are stamped with session, sequence and
// timestamp before delivery. Run returns ctx.Err().
func (d *Driver) Run(ctx context.Context, handler Handler) error {
	var s State = Connecting{}
	for {
		ev, next := d.Step(ctx, s)
		s = next
		if ctx.Err() != nil {
			CloseState(s)
			return ctx.Err()
		}
		if ev.IsZero() {
			continue
		}
		d.stamp(&ev)
		handler(ctx, &ev)
	}
}

func (d *Driver) connect(ctx context.Context) (types.Event, State) {
	d.cfg.Metrics.IncConnectAttempt()

	conn, err := d.cfg.Opener.Open(ctx, d.cfg.Endpoint)
	if ctx.Err() != nil {
		if conn != nil {
			_ = conn.Close()
		}
		return types.Event{}, Connecting{}
	}
	if err != nil {
		if !IsConnectError(err) {
			err = &ConnectError{Kind: ConnectTransport, Err: err}
		}
		kind := string(ConnectErrorKindOf(err))
		d.cfg.Metrics.IncConnectFailure(kind)
		d.cfg.Logger.Warn("connect failed", map[string]any{
			"error": err.Error(),
			"kind":  kind,
		})
		return types.NewErrorEvent(StatusText(err)), Sleeping{Delay: d.cfg.ReconnectDelay}
	}

	d.cfg.Metrics.IncConnection()
	d.cfg.Logger.Info("connected", map[string]any{
		"conn_id":      conn.ID,
		"boundary":     string(conn.Boundary),
		"content_type": conn.ContentType,
	})

	ev := types.NewStatusEvent(StatusConnected)
	ev.ConnID = conn.ID
	return ev, Streaming{Conn: conn, FirstFrame: true}
}

func (d *Driver) stream(ctx context.Context, st Streaming) (types.Event, State) {
	buf := st.Buffer
	first := st.FirstFrame
	pending := st.Err

	for {
		out := mjpeg.Drain(buf, st.Conn.Boundary, first)
		d.cfg.Metrics.AddPartsDiscarded(out.Discarded)
		buf, first = out.Rest, out.FirstFrame

		if out.Kind == mjpeg.FrameReady {
			d.cfg.Metrics.IncFrame(len(out.Payload))
			ev := types.NewFrameEvent(out.Payload)
			ev.ConnID = st.Conn.ID
			return ev, Streaming{Conn: st.Conn, Buffer: buf, FirstFrame: first, Err: pending}
		}

		if pending != nil {
			return d.fail(ctx, st.Conn, pending)
		}
		if len(buf) > d.cfg.MaxBufferSize {
			return d.fail(ctx, st.Conn, &StreamError{
				Kind: StreamOverflow,
				Err:  fmt.Errorf("%w (%d bytes)", ErrBufferOverflow, d.cfg.MaxBufferSize),
			})
		}

		n, err := st.Conn.Read(d.readBuf)
		if n > 0 {
			d.cfg.Metrics.AddBytesRead(n)
			buf = append(buf, d.readBuf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				pending = &StreamError{Kind: StreamEnded}
			} else {
				pending = &StreamError{Kind: StreamTransport, Err: err}
			}
			if n == 0 {
				return d.fail(ctx, st.Conn, pending)
			}
		}
	}
}

// fail tears down conn and moves to Sleeping.
func (d *Driver) fail(ctx context.Context, conn *Conn, err *StreamError) (types.Event, State) {
	_ = conn.Close()
	if ctx.Err() != nil {
		return types.Event{}, Connecting{}
	}

	switch err.Kind {
	case StreamEnded:
		d.cfg.Metrics.IncStreamEnd()
	case StreamOverflow:
		d.cfg.Metrics.IncBufferOverflow()
	default:
		d.cfg.Metrics.IncStreamError()
	}
	d.cfg.Logger.Warn("stream lost", map[string]any{
		"conn_id": conn.ID,
		"kind":    string(err.Kind),
		"error":   err.Error(),
	})

	ev := types.NewErrorEvent(err.StatusText())
	ev.ConnID = conn.ID
	return ev, Sleeping{Delay: d.cfg.ReconnectDelay}
}

func (d *Driver) sleep(ctx context.Context, st Sleeping) (types.Event, State) {
	timer := time.NewTimer(st.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return types.Event{}, Connecting{}
	case <-timer.C:
	}

	d.cfg.Metrics.IncReconnect()
	d.cfg.Logger.Debug("reconnecting", map[string]any{"delay": st.Delay.String()})
	return types.NewStatusEvent(StatusReconnecting), Connecting{}
}

func (d *Driver) stamp(ev *types.Event) {
	d.seq++
	ev.Seq = d.seq
	ev.SessionID = d.cfg.SessionID
	ev.Ts = types.FormatTimestamp(d.cfg.Now())
	if ev.Frame != nil {
		d.frames++
		ev.Frame.Seq = d.frames
	}
}
