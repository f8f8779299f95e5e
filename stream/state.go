package stream

import "time"

// State is one of Connecting, Streaming or Sleeping. The set is closed: the
// unexported method keeps other packages from adding states.
type State interface {
	// Name returns the lowercase state name for logs and the TUI.
	Name() string
	isState()
}

// Connecting is the state before a connection attempt.
type Connecting struct{}

// Streaming holds a live connection and the bytes received on it that have
// not been consumed yet. The buffer belongs to this value alone; Step moves
// it into the next Streaming value.
//
// Err is a read failure that arrived together with data. The next Step
// drains the frames still in Buffer and then fails without reading again.
type Streaming struct {
	Conn       *Conn
	Buffer     []byte
	FirstFrame bool
	Err        *StreamError
}

// Sleeping waits Delay before the next connection attempt.
type Sleeping struct {
	Delay time.Duration
}

// Name implements State.
func (Connecting) Name() string { return "connecting" }

// Name implements State.
func (Streaming) Name() string { return "streaming" }

// Name implements State.
func (Sleeping) Name() string { return "sleeping" }

func (Connecting) isState() {}
func (Streaming) isState()  {}
func (Sleeping) isState()   {}

// CloseState releases the connection owned by s, if any.
func CloseState(s State) {
	if st, ok := s.(Streaming); ok {
		_ = st.Conn.Close()
	}
}
