package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"go.withmatt.com/otpwatch/internal/app"
)

// Update handles events and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.updateKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layoutBody()
		return m, nil
	case refreshedMsg:
		return m.handleRefreshed(msg)
	case autoRefreshMsg:
		return m.handleAutoRefresh()
	case CredentialMsg:
		if msg.Err != nil {
			m.credentialErr = msg.Err
		} else {
			m.credentialExpiry = msg.Expiry
			m.credentialErr = nil
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd
	}
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layoutBody()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m.startRefresh()
	case key.Matches(msg, m.keys.ToggleView):
		if m.view == viewCodes {
			m.view = viewMessages
		} else {
			m.view = viewCodes
		}
		m.keys.view = m.view
		m.layoutBody()
		return m, nil
	case key.Matches(msg, m.keys.Window):
		m.req.Window = m.req.Window.Next()
		return m.requery()
	case key.Matches(msg, m.keys.More):
		return m.setLimit(app.StepLimit(m.req.Limit, 1))
	case key.Matches(msg, m.keys.Fewer):
		return m.setLimit(app.StepLimit(m.req.Limit, -1))
	case key.Matches(msg, m.keys.Up):
		if m.view == viewMessages && m.cursor > 0 {
			m.cursor--
			m.layoutBody()
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.view == viewMessages && m.cursor < len(m.state.Messages)-1 {
			m.cursor++
			m.layoutBody()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

func (m Model) setLimit(limit int) (tea.Model, tea.Cmd) {
	if limit == m.req.Limit {
		return m, nil
	}
	m.req.Limit = limit
	return m.requery()
}

// requery refetches after m.req changed. A refresh already in flight was
// built from the old request, so another one follows it.
func (m Model) requery() (tea.Model, tea.Cmd) {
	if m.refreshing {
		m.requeued = true
		return m, nil
	}
	return m.startRefresh()
}

func (m Model) startRefresh() (tea.Model, tea.Cmd) {
	if m.refreshing {
		return m, nil
	}
	m.refreshing = true
	return m, m.refreshCmd()
}

func (m Model) handleRefreshed(msg refreshedMsg) (tea.Model, tea.Cmd) {
	m.refreshing = false
	m.loaded = true
	m.state = msg.state
	if m.cursor >= len(m.state.Messages) {
		m.cursor = max(len(m.state.Messages)-1, 0)
	}
	m.layoutBody()

	var title string
	if latest, ok := m.state.Latest(); ok {
		title = latest.Code
	}
	setTitle := tea.SetWindowTitle(windowTitle(title))
	if m.requeued {
		m.requeued = false
		m.refreshing = true
		return m, tea.Batch(m.refreshCmd(), setTitle)
	}
	return m, setTitle
}

func (m Model) handleAutoRefresh() (tea.Model, tea.Cmd) {
	if m.refreshing {
		return m, m.autoRefreshCmd()
	}
	m.refreshing = true
	return m, tea.Batch(m.refreshCmd(), m.autoRefreshCmd())
}
