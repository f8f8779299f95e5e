package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/xcoffee/metrics"
	"github.com/pithecene-io/xcoffee/stream"
	"github.com/pithecene-io/xcoffee/types"
)

// Phase is the driver state as observed from the event sequence.
type Phase string

// Phases shown in the header.
const (
	PhaseConnecting Phase = "connecting"
	PhaseStreaming  Phase = "streaming"
	PhaseSleeping   Phase = "sleeping"
	PhaseStopped    Phase = "stopped"
)

// refreshInterval is how often counters are re-read from the collector.
const refreshInterval = 500 * time.Millisecond

// EventMsg wraps one driver event for the Bubble Tea loop.
type EventMsg struct {
	Event types.Event
}

// closedMsg signals that the event channel was closed.
type closedMsg struct{}

// tickMsg triggers a counter refresh.
type tickMsg time.Time

// SnapshotFunc returns the current session counters.
type SnapshotFunc func() metrics.Snapshot

// WatchModel is a Bubble Tea model for the watch live view.
type WatchModel struct {
	endpoint string
	events   <-chan types.Event
	snapshot SnapshotFunc

	spinner spinner.Model
	phase   Phase
	status  string
	lastErr string

	frameSeq  int64
	frameSize int
	frameAt   string

	counters metrics.Snapshot
	width    int
	height   int
	quitting bool
}

// NewWatchModel creates a watch model reading events from ch.
// snapshot may be nil, in which case no counters are shown.
func NewWatchModel(endpoint string, ch <-chan types.Event, snapshot SnapshotFunc) WatchModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(roastColor)
	return WatchModel{
		endpoint: endpoint,
		events:   ch,
		snapshot: snapshot,
		spinner:  s,
		phase:    PhaseConnecting,
		status:   "Connecting...",
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), refreshTick())
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case EventMsg:
		m.apply(msg.Event)
		return m, waitForEvent(m.events)

	case closedMsg:
		m.phase = PhaseStopped
		m.status = "Stopped."
		m.refresh()
		return m, tea.Quit

	case tickMsg:
		m.refresh()
		return m, refreshTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds one event into the view state.
func (m *WatchModel) apply(ev types.Event) {
	switch ev.Type {
	case types.EventTypeFrameLoaded:
		m.phase = PhaseStreaming
		m.lastErr = ""
		if ev.Frame != nil {
			m.frameSeq = ev.Frame.Seq
			m.frameSize = ev.Frame.Size
		}
		m.frameAt = ev.Ts
		m.status = fmt.Sprintf("Frame #%d loaded", m.frameSeq)
	case types.EventTypeStatus:
		m.status = ev.Message
		if ev.Message == stream.StatusReconnecting {
			m.phase = PhaseConnecting
		} else {
			m.phase = PhaseStreaming
		}
	case types.EventTypeError:
		m.phase = PhaseSleeping
		m.status = ev.Message
		m.lastErr = ev.Message
	}
}

func (m *WatchModel) refresh() {
	if m.snapshot != nil {
		m.counters = m.snapshot()
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("xcoffee watch"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Endpoint:"), ValueStyle.Render(m.endpoint)))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Phase:"), PhaseStyle(m.phase).Render(string(m.phase))))

	indicator := m.spinner.View()
	if m.phase == PhaseStopped {
		indicator = " "
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n", LabelStyle.Render("Status:"), indicator, ValueStyle.Render(m.status)))

	if m.frameSeq > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Last Frame:"),
			ValueStyle.Render(fmt.Sprintf("#%d, %s at %s", m.frameSeq, formatBytes(int64(m.frameSize)), m.frameAt))))
	}
	if m.lastErr != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Last Error:"), ErrorStyle.Render(m.lastErr)))
	}

	if m.snapshot != nil {
		b.WriteString("\n")
		boxes := []string{
			renderStatBox("Frames", fmt.Sprintf("%d", m.counters.FramesEmitted), successColor),
			renderStatBox("Received", formatBytes(m.counters.BytesRead), highlightColor),
			renderStatBox("Reconnects", fmt.Sprintf("%d", m.counters.Reconnects), warningColor),
			renderStatBox("Discarded", fmt.Sprintf("%d", m.counters.PartsDiscarded), errorColor),
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("Press q or Ctrl+C to quit"))
	return b.String()
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// formatBytes renders n with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func waitForEvent(ch <-chan types.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunWatch runs the watch TUI until the user quits or ch is closed.
func RunWatch(endpoint string, ch <-chan types.Event, snapshot SnapshotFunc) error {
	p := tea.NewProgram(NewWatchModel(endpoint, ch, snapshot), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
