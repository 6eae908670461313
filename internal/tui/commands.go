package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/log"
)

type refreshedMsg struct {
	state app.State
}

type autoRefreshMsg struct{}

func (m Model) refreshCmd() tea.Cmd {
	a, ctx, req := m.app, m.ctx, m.req
	return func() tea.Msg {
		start := time.Now()
		st := a.Refresh(ctx, req)
		log.Printf("Dashboard refresh: %d messages, %d codes in %s",
			len(st.Messages), len(st.Groups), time.Since(start).Round(time.Millisecond))
		return refreshedMsg{state: st}
	}
}

func (m Model) autoRefreshCmd() tea.Cmd {
	if m.uiConfig.RefreshIntervalSeconds <= 0 {
		return nil
	}
	interval := time.Duration(m.uiConfig.RefreshIntervalSeconds) * time.Second
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return autoRefreshMsg{}
	})
}
