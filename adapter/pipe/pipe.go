// Package pipe implements an adapter that writes ipc-framed events to a
// stream, typically stdout, for consumption by another process.
package pipe

import (
	"context"
	"errors"
	"io"

	"github.com/pithecene-io/xcoffee/adapter"
	"github.com/pithecene-io/xcoffee/ipc"
	"github.com/pithecene-io/xcoffee/types"
)

// Adapter writes each event as one length-prefixed msgpack frame.
type Adapter struct {
	enc    *ipc.FrameEncoder
	closer io.Closer
}

// New creates a pipe adapter writing to w. If w is also an io.Closer it is
// closed by Close.
func New(w io.Writer) (*Adapter, error) {
	if w == nil {
		return nil, errors.New("pipe adapter requires a writer")
	}
	a := &Adapter{enc: ipc.NewFrameEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		a.closer = c
	}
	return a, nil
}

// Publish writes the event. The write is not interruptible; ctx is checked
// before it starts.
func (a *Adapter) Publish(ctx context.Context, event *types.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.enc.WriteEvent(event)
}

// Close closes the underlying writer when it is closable.
func (a *Adapter) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
