// Package console implements an adapter that prints one line per event.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pithecene-io/xcoffee/adapter"
	"github.com/pithecene-io/xcoffee/types"
)

// Adapter writes human-readable event lines.
type Adapter struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a console adapter writing to w.
func New(w io.Writer) (*Adapter, error) {
	if w == nil {
		return nil, errors.New("console adapter requires a writer")
	}
	return &Adapter{w: w}, nil
}

// Publish prints the event.
func (a *Adapter) Publish(_ context.Context, event *types.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := fmt.Fprintln(a.w, FormatEvent(event))
	return err
}

// Close is a no-op; the writer belongs to the caller.
func (a *Adapter) Close() error {
	return nil
}

// FormatEvent renders ev as a single line.
//
//	2026-01-02T03:04:05Z #3 status Connected. Waiting for frame...
//	2026-01-02T03:04:06Z #4 frame 12 (48213 bytes)
func FormatEvent(ev *types.Event) string {
	prefix := fmt.Sprintf("%s #%d", ev.Ts, ev.Seq)
	switch {
	case ev.Frame != nil:
		return fmt.Sprintf("%s frame %d (%d bytes)", prefix, ev.Frame.Seq, ev.Frame.Size)
	default:
		return fmt.Sprintf("%s %s %s", prefix, ev.Type, ev.Message)
	}
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
