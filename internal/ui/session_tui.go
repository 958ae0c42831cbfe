package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/penflow/penflow/internal/optimizer"
	"github.com/penflow/penflow/models"
)

const traceTailLines = 6

// MsgSessionUpdate signals that the controller state changed and the view
// needs re-reading.
type MsgSessionUpdate struct{}

// SessionModel is the live view of a running optimization session: status,
// paragraph progress, the tail of the reasoning trace and the suggestion
// count. Quitting while the session is active cancels it first.
type SessionModel struct {
	Ctrl *optimizer.Controller
	Ctx  context.Context

	Spinner  spinner.Model
	Progress progress.Model

	updates chan struct{}
	width   int
	done    bool
}

// NewSessionModel builds the session view and hooks it to controller
// notifications.
func NewSessionModel(ctx context.Context, ctrl *optimizer.Controller) *SessionModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StylePrimary

	updates := make(chan struct{}, 1)
	ctrl.Subscribe(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	return &SessionModel{
		Ctrl:     ctrl,
		Ctx:      ctx,
		Spinner:  sp,
		Progress: progress.New(progress.WithDefaultGradient()),
		updates:  updates,
	}
}

func (m *SessionModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.waitForUpdate())
}

func (m *SessionModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return MsgSessionUpdate{}
	}
}

func (m *SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.Progress.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.Ctrl.Session().Status.Terminal() {
				m.Ctrl.CancelSession(m.Ctx)
			}
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case MsgSessionUpdate:
		s := m.Ctrl.Session()
		// Idle here means the stuck-start guard reset the session.
		// Paused hands control back to the caller's action loop.
		if s.Status.Terminal() || s.Status == models.StatusIdle || s.Status == models.StatusPaused {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.Progress.Update(msg)
		m.Progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *SessionModel) View() string {
	s := m.Ctrl.Session()

	var sb strings.Builder
	sb.WriteString(StyleHeader.Render("penflow optimize") + "\n\n")

	if s.Status == models.StatusRunning {
		sb.WriteString(m.Spinner.View() + " ")
	}
	sb.WriteString(RenderStatusLine(s) + "\n")

	if s.TotalUnits > 0 {
		sb.WriteString(m.Progress.ViewAs(float64(s.CurrentUnit)/float64(s.TotalUnits)) + "\n")
	}

	if trace := m.Ctrl.Thinking(); len(trace) > 0 {
		sb.WriteString("\n")
		start := len(trace) - traceTailLines
		if start < 0 {
			start = 0
		}
		var lines []string
		for _, ev := range trace[start:] {
			lines = append(lines, RenderTraceLine(ev))
		}
		sb.WriteString(StyleTraceBox.Render(strings.Join(lines, "\n")) + "\n")
	}

	sb.WriteString("\n" + StyleSubtle.Render(
		fmt.Sprintf("%d suggestions collected · q to cancel", len(m.Ctrl.Suggestions()))))

	if errText := m.Ctrl.LastError(); errText != "" && s.Status == models.StatusError {
		sb.WriteString("\n" + StylePrefixError.Render("✗ ") + StyleError.Render(errText))
	}
	return sb.String() + "\n"
}

// Done reports whether the view exited.
func (m *SessionModel) Done() bool { return m.done }
