package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/config"
	"go.withmatt.com/otpwatch/internal/gmail"
)

type stubFetcher struct {
	calls    int
	queries  []string
	messages []gmail.Message
	stats    gmail.FetchStats
}

func (s *stubFetcher) Fetch(ctx context.Context, query string, limit int) ([]gmail.Message, gmail.FetchStats) {
	s.calls++
	s.queries = append(s.queries, query)
	return s.messages, s.stats
}

func codeMessage(code, date string) gmail.Message {
	return gmail.Message{
		ID:            gmail.MessageID(code + date),
		From:          "Poe <noreply@poe.com>",
		Subject:       "Your verification code",
		FormattedDate: date,
		Content:       "Your Poe verification code is: " + code,
	}
}

func newTestModel(t *testing.T, fetcher *stubFetcher) Model {
	t.Helper()
	a := app.New(fetcher, nil)
	a.Clock = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	m := New(context.Background(), a, app.Request{Query: "from:noreply@poe.com", Limit: 20}, config.UIConfig{}, config.KeyMap{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// refresh runs a refresh command synchronously and feeds its result back.
func refresh(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.refreshCmd()()
	require.IsType(t, refreshedMsg{}, msg)
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestModelShowsLatestCode(t *testing.T) {
	fetcher := &stubFetcher{messages: []gmail.Message{
		codeMessage("482913", "2026-10-18 08:59:00"),
		codeMessage("111111", "2026-10-18 08:40:00"),
		codeMessage("111111", "2026-10-18 08:30:00"),
	}}
	m := newTestModel(t, fetcher)
	assert.Contains(t, m.View(), "Fetching messages")

	m = refresh(t, m)
	view := m.View()
	assert.Contains(t, view, "482913")
	assert.Contains(t, view, "111111")
	assert.Contains(t, view, "×2")
	assert.Contains(t, view, "updated 09:00:00")
	assert.False(t, m.refreshing)
}

func TestModelEmptyAndFailedFetch(t *testing.T) {
	fetcher := &stubFetcher{}
	m := refresh(t, newTestModel(t, fetcher))
	assert.Contains(t, m.View(), app.NoMessages)

	fetcher.stats = gmail.FetchStats{Err: errors.New("list messages: 503")}
	m = refresh(t, m)
	view := m.View()
	assert.Contains(t, view, app.NoMessages)
	assert.Contains(t, view, "503")
}

func TestModelToggleViewAndCursor(t *testing.T) {
	fetcher := &stubFetcher{messages: []gmail.Message{
		codeMessage("222222", "2026-10-18 08:59:00"),
		codeMessage("333333", "2026-10-18 08:00:00"),
	}}
	m := refresh(t, newTestModel(t, fetcher))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, viewMessages, m.view)
	assert.Contains(t, m.View(), "MESSAGES")
	assert.Contains(t, m.body.View(), "222222")

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.body.View(), "333333")

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.cursor, "cursor stops at the last message")

	m, _ = press(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, viewCodes, m.view)
}

func TestModelRefreshKeysIgnoredWhileRefreshing(t *testing.T) {
	fetcher := &stubFetcher{}
	m := newTestModel(t, fetcher)
	require.True(t, m.refreshing)

	_, cmd := press(t, m, runes("r"))
	assert.Nil(t, cmd)

	m = refresh(t, m)
	m, cmd = press(t, m, runes("r"))
	require.NotNil(t, cmd)
	assert.True(t, m.refreshing)
}

func TestModelWindowAndLimitKeys(t *testing.T) {
	fetcher := &stubFetcher{}
	m := refresh(t, newTestModel(t, fetcher))

	m, cmd := press(t, m, runes("w"))
	require.NotNil(t, cmd)
	assert.Equal(t, app.WindowToday, m.req.Window)
	m = refresh(t, m)
	assert.Equal(t, "from:noreply@poe.com after:2026/10/17", fetcher.queries[len(fetcher.queries)-1])

	m, _ = press(t, m, runes("+"))
	assert.Equal(t, 25, m.req.Limit)
	m = refresh(t, m)
	m, _ = press(t, m, runes("-"))
	assert.Equal(t, 20, m.req.Limit)
}

func TestModelWindowChangeDuringRefreshFollowsUp(t *testing.T) {
	fetcher := &stubFetcher{}
	m := newTestModel(t, fetcher)
	inflight := m.refreshCmd()
	require.True(t, m.refreshing)

	m, cmd := press(t, m, runes("w"))
	assert.Nil(t, cmd)
	assert.Equal(t, app.WindowToday, m.req.Window)
	assert.True(t, m.requeued)

	updated, cmd := m.Update(inflight())
	m = updated.(Model)
	require.NotNil(t, cmd, "a refresh for the new window follows")
	assert.True(t, m.refreshing)
	assert.False(t, m.requeued)
	assert.Equal(t, "from:noreply@poe.com", fetcher.queries[len(fetcher.queries)-1])

	m = refresh(t, m)
	assert.False(t, m.refreshing)
	assert.Equal(t, "from:noreply@poe.com after:2026/10/17", fetcher.queries[len(fetcher.queries)-1])
}

func TestModelCredentialStatus(t *testing.T) {
	m := refresh(t, newTestModel(t, &stubFetcher{}))

	updated, _ := m.Update(CredentialMsg{Expiry: time.Date(2026, 10, 18, 10, 30, 0, 0, time.Local)})
	m = updated.(Model)
	assert.Contains(t, m.View(), "token until 10:30")

	updated, _ = m.Update(CredentialMsg{Err: errors.New("refresh rejected")})
	m = updated.(Model)
	assert.Contains(t, m.View(), "auth: refresh rejected")
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, &stubFetcher{})
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestAutoRefreshSkipsWhileBusy(t *testing.T) {
	m := newTestModel(t, &stubFetcher{})
	updated, cmd := m.Update(autoRefreshMsg{})
	require.NotNil(t, cmd, "the tick is rescheduled")
	assert.True(t, updated.(Model).refreshing)
}

func TestTruncateWideRunes(t *testing.T) {
	assert.Equal(t, "您的…", truncate("您的Poe验证码", 5))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Empty(t, truncate("anything", 0))
}

func TestFormatHelpKeys(t *testing.T) {
	assert.Equal(t, "k/↑", formatHelpKeys([]string{"k", "up"}))
	assert.Equal(t, "+/=", formatHelpKeys([]string{"+", "=", "+"}))
}
