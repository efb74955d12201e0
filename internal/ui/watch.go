package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultWatchInterval is the time between status polls in the watch view
const DefaultWatchInterval = 2 * time.Second

// PollFunc fetches one decoded status response
type PollFunc func(ctx context.Context) (any, error)

// Message types for async polling
type (
	statusMsg struct {
		value any
		err   error
		at    time.Time
	}
	pollTickMsg struct {
		seq int
	}
)

// watchKeyMap defines key bindings for the watch view
type watchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Quit}}
}

// WatchModel polls the unit on an interval and renders the latest status
type WatchModel struct {
	Title    string
	Target   string
	Interval time.Duration

	ctx  context.Context
	poll PollFunc

	// UI state
	Width   int
	Spinner spinner.Model
	Dryer   progress.Model
	Help    help.Model
	Keys    watchKeyMap

	// Poll state
	Polling  bool
	Last     any
	LastErr  error
	Updated  time.Time
	Polls    int
	seq      int
	Quitting bool
}

// NewWatchModel creates a watch view that calls poll every interval
func NewWatchModel(ctx context.Context, target string, interval time.Duration, poll PollFunc) WatchModel {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	keys := watchKeyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return WatchModel{
		Title:    "ACE Status",
		Target:   target,
		Interval: interval,
		ctx:      ctx,
		poll:     poll,
		Width:    GetTerminalWidth(),
		Spinner:  s,
		Dryer:    bar,
		Help:     help.New(),
		Keys:     keys,
		Polling:  true,
	}
}

// Init starts the first poll
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.Spinner.Tick)
}

func (m WatchModel) pollCmd() tea.Cmd {
	ctx, poll := m.ctx, m.poll
	return func() tea.Msg {
		v, err := poll(ctx)
		return statusMsg{value: v, err: err, at: time.Now()}
	}
}

func (m WatchModel) tickCmd() tea.Cmd {
	seq := m.seq
	return tea.Tick(m.Interval, func(time.Time) tea.Msg {
		return pollTickMsg{seq: seq}
	})
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			m.Quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Refresh):
			if m.Polling {
				return m, nil
			}
			m.Polling = true
			return m, m.pollCmd()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		if m.Width > MaxContentWidth {
			m.Width = MaxContentWidth
		}

	case statusMsg:
		m.Polling = false
		m.Polls++
		m.Updated = msg.at
		m.LastErr = msg.err
		if msg.err == nil {
			m.Last = msg.value
		}
		// A manual refresh makes any pending tick stale.
		m.seq++
		return m, m.tickCmd()

	case pollTickMsg:
		if msg.seq != m.seq || m.Polling {
			return m, nil
		}
		m.Polling = true
		return m, m.pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch screen
func (m WatchModel) View() string {
	if m.Quitting {
		return ""
	}

	width := m.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	header := NewHeader(m.Title, "acectl watch",
		Field{Key: "Target", Value: m.Target},
		Field{Key: "Interval", Value: m.Interval.String()},
	).SetWidth(width).Render()

	sections := []string{header, "", m.renderStatusLine()}

	if m.LastErr != nil {
		sections = append(sections, "", NewFailureResult("get_status", m.LastErr).SetWidth(width).Render())
	}

	if m.Last != nil {
		status := unwrapResult(m.Last)
		if bar := m.renderDryer(status); bar != "" {
			sections = append(sections, "", bar)
		}
		sections = append(sections, "", renderFields(Flatten(status)))
	}

	sections = append(sections, "", HelpStyle.Render(m.Help.View(m.Keys)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m WatchModel) renderStatusLine() string {
	if m.Polling {
		return "  " + m.Spinner.View() + " Polling..."
	}
	if m.Updated.IsZero() {
		return "  Waiting for first response"
	}
	return HeaderCommandStyle.Render(fmt.Sprintf("Updated %s (poll #%d)", m.Updated.Format("15:04:05"), m.Polls))
}

// renderDryer draws a progress bar while the dryer is running.
// duration is in minutes and remain_time in seconds.
func (m WatchModel) renderDryer(status any) string {
	dryer, ok := lookupMap(status, "dryer_status", "dryer")
	if !ok {
		return ""
	}
	duration, ok1 := dryer["duration"].(float64)
	remain, ok2 := dryer["remain_time"].(float64)
	if !ok1 || !ok2 || duration <= 0 {
		return ""
	}

	total := duration * 60
	done := (total - remain) / total
	if done < 0 {
		done = 0
	}
	if done > 1 {
		done = 1
	}

	label := "Dryer"
	if s, ok := dryer["status"].(string); ok {
		label += " " + StatusStyle(s).Render(s)
	}
	left := time.Duration(remain) * time.Second
	return lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %s  %s left", label, m.Dryer.ViewAs(done), left.Round(time.Second)))
}

func renderFields(fields []Field) string {
	keyStyle := KeyColumnStyle(fields, 2)
	lines := make([]string, len(fields))
	for i, f := range fields {
		value := ResultValueStyle.Render(f.Value)
		if strings.HasSuffix(f.Key, "status") {
			value = StatusStyle(f.Value).Render(f.Value)
		}
		lines[i] = keyStyle.Render("  "+f.Key) + " " + value
	}
	return strings.Join(lines, "\n")
}

// unwrapResult returns the "result" member of a response, if there is one
func unwrapResult(v any) any {
	if m, ok := v.(map[string]any); ok {
		if r, ok := m["result"]; ok {
			return r
		}
	}
	return v
}

func lookupMap(v any, keys ...string) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range keys {
		if inner, ok := m[k].(map[string]any); ok {
			return inner, true
		}
	}
	return nil, false
}

// RunWatch runs the watch view until the user quits or ctx is done
func RunWatch(ctx context.Context, model WatchModel) error {
	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}
