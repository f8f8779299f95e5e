package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/xcoffee/metrics"
	"github.com/pithecene-io/xcoffee/stream"
	"github.com/pithecene-io/xcoffee/types"
)

func update(t *testing.T, m WatchModel, msg tea.Msg) (WatchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(WatchModel)
	if !ok {
		t.Fatalf("Update returned %T, want WatchModel", next)
	}
	return wm, cmd
}

func TestWatchModel_PhaseTransitions(t *testing.T) {
	frame := types.NewFrameEvent([]byte("jpeg"))
	frame.Frame.Seq = 3
	frame.Ts = "2026-01-01T00:00:00Z"

	tests := []struct {
		name      string
		event     types.Event
		wantPhase Phase
		wantText  string
	}{
		{"connected", types.NewStatusEvent(stream.StatusConnected), PhaseStreaming, stream.StatusConnected},
		{"reconnecting", types.NewStatusEvent(stream.StatusReconnecting), PhaseConnecting, stream.StatusReconnecting},
		{"error", types.NewErrorEvent("Connection failed with status: 503 Service Unavailable"), PhaseSleeping, "503"},
		{"frame", frame, PhaseStreaming, "Frame #3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWatchModel("http://cam.local/", make(chan types.Event), nil)
			m, cmd := update(t, m, EventMsg{Event: tt.event})
			if cmd == nil {
				t.Error("event should schedule the next receive")
			}
			if m.phase != tt.wantPhase {
				t.Errorf("phase = %q, want %q", m.phase, tt.wantPhase)
			}
			if !strings.Contains(m.status, tt.wantText) {
				t.Errorf("status = %q, want it to contain %q", m.status, tt.wantText)
			}
		})
	}
}

func TestWatchModel_FrameClearsError(t *testing.T) {
	m := NewWatchModel("http://cam.local/", nil, nil)
	m, _ = update(t, m, EventMsg{Event: types.NewErrorEvent("Stream error: reset")})
	if m.lastErr == "" {
		t.Fatal("error event should set lastErr")
	}
	if !strings.Contains(m.View(), "Stream error: reset") {
		t.Error("view should show the last error")
	}

	m, _ = update(t, m, EventMsg{Event: types.NewFrameEvent(make([]byte, 2048))})
	if m.lastErr != "" {
		t.Errorf("frame should clear lastErr, got %q", m.lastErr)
	}
	if m.frameSize != 2048 {
		t.Errorf("frameSize = %d, want 2048", m.frameSize)
	}
}

func TestWatchModel_ChannelClosedQuits(t *testing.T) {
	ch := make(chan types.Event)
	close(ch)

	m := NewWatchModel("http://cam.local/", ch, nil)
	msg := waitForEvent(ch)()
	if _, ok := msg.(closedMsg); !ok {
		t.Fatalf("waitForEvent on closed channel = %T, want closedMsg", msg)
	}

	m, cmd := update(t, m, msg)
	if m.phase != PhaseStopped {
		t.Errorf("phase = %q, want stopped", m.phase)
	}
	if cmd == nil {
		t.Fatal("closed channel should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed channel should return tea.Quit")
	}
}

func TestWatchModel_WaitForEventDelivers(t *testing.T) {
	ch := make(chan types.Event, 1)
	ch <- types.NewStatusEvent(stream.StatusConnected)

	msg := waitForEvent(ch)()
	em, ok := msg.(EventMsg)
	if !ok {
		t.Fatalf("waitForEvent = %T, want EventMsg", msg)
	}
	if em.Event.Message != stream.StatusConnected {
		t.Errorf("message = %q", em.Event.Message)
	}
}

func TestWatchModel_RefreshReadsCounters(t *testing.T) {
	c := metrics.NewCollector("http://cam.local/", "strict", "console", "s1")
	c.IncFrame(100)
	c.IncFrame(200)
	c.IncReconnect()

	m := NewWatchModel("http://cam.local/", nil, c.Snapshot)
	m, cmd := update(t, m, tickMsg{})
	if cmd == nil {
		t.Error("tick should reschedule itself")
	}
	if m.counters.FramesEmitted != 2 {
		t.Errorf("FramesEmitted = %d, want 2", m.counters.FramesEmitted)
	}

	view := m.View()
	for _, want := range []string{"Frames", "Reconnects", "http://cam.local/"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWatchModel_QuitKey(t *testing.T) {
	m := NewWatchModel("http://cam.local/", nil, nil)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.quitting {
		t.Error("q should set quitting")
	}
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPhaseStyle(t *testing.T) {
	tests := []struct {
		phase Phase
		want  any
	}{
		{PhaseConnecting, dialColor},
		{PhaseStreaming, streamColor},
		{PhaseSleeping, lostColor},
		{PhaseStopped, plainColor},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			if got := PhaseStyle(tt.phase).GetForeground(); got != tt.want {
				t.Errorf("PhaseStyle(%s) foreground = %v, want %v", tt.phase, got, tt.want)
			}
		})
	}
}
