package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/gmail"
)

const (
	windowTitleSuffix = "otpwatch"
	minListRows       = 3
)

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View() + " Fetching messages...")
	case m.view == viewMessages:
		b.WriteString(m.renderMessages())
	default:
		b.WriteString(m.renderCodes())
	}

	footer := m.renderStatus() + "\n" + m.help.View(m.keys)
	body := b.String()
	if m.height > 0 {
		gap := m.height - lipgloss.Height(body) - lipgloss.Height(footer)
		if gap > 0 {
			body += strings.Repeat("\n", gap)
		}
	}
	return body + "\n" + footer
}

func (m Model) renderHeader() string {
	title := m.styles.title.Render("otpwatch")
	query := m.state.Query
	if query == "" {
		query = m.req.Query
	}
	width := m.width - lipgloss.Width(title) - 1
	if width <= 0 {
		return title
	}
	return title + " " + m.styles.dim.Render(truncate(query, width))
}

func (m Model) renderProblem() string {
	if m.state.Err != nil {
		return m.styles.err.Render(app.NoMessages + " " + m.state.Err.Error())
	}
	if m.state.Empty() {
		return m.styles.dim.Render(app.NoMessages)
	}
	return ""
}

func (m Model) renderCodes() string {
	if problem := m.renderProblem(); problem != "" {
		return problem
	}
	latest, ok := m.state.Latest()
	if !ok {
		return m.styles.dim.Render(fmt.Sprintf("No verification codes in %d messages.", len(m.state.Messages)))
	}

	var b strings.Builder
	b.WriteString(m.styles.latest.Render(latest.Code))
	b.WriteString("\n")
	b.WriteString(m.styles.dim.Render("received " + latest.Latest()))
	b.WriteString("\n\n")

	for i, g := range m.state.Groups {
		if i > 0 && m.height > 0 && lipgloss.Height(b.String()) >= m.height-6 {
			b.WriteString(m.styles.dim.Render(fmt.Sprintf("… %d more", len(m.state.Groups)-i)))
			break
		}
		line := fmt.Sprintf("%s  ×%d  %s", m.styles.code.Render(g.Code), len(g.Dates), g.Latest())
		if len(g.Dates) > 1 {
			earlier := strings.Join(g.Dates[1:], ", ")
			room := m.width - lipgloss.Width(line) - 2
			if m.width <= 0 {
				room = len(earlier)
			}
			if room > 0 {
				line += "  " + m.styles.dim.Render(truncate(earlier, room))
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderMessages() string {
	if problem := m.renderProblem(); problem != "" {
		return problem
	}
	rows := m.listRows()
	offset := max(m.cursor-rows+1, 0)
	end := min(offset+rows, len(m.state.Messages))

	var b strings.Builder
	for i := offset; i < end; i++ {
		line := m.messageLine(m.state.Messages[i])
		if i == m.cursor {
			b.WriteString(m.styles.selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(m.styles.rule.Render(strings.Repeat("─", max(m.bodyWidth(), 1))))
	b.WriteString("\n")
	b.WriteString(m.body.View())
	return b.String()
}

func (m Model) messageLine(msg gmail.Message) string {
	width := m.width - 2
	if width <= 0 {
		width = 80
	}
	date := runewidth.FillRight(msg.FormattedDate, len(gmail.DateLayout))
	from := runewidth.FillRight(truncate(msg.From, 24), 24)
	line := date + "  " + from + "  " + msg.Subject
	return truncate(line, width)
}

func (m Model) renderStatus() string {
	mode := "CODES"
	if m.view == viewMessages {
		mode = "MESSAGES"
	}
	left := m.styles.mode.Render(mode) +
		m.styles.status.Render(fmt.Sprintf("%s • limit %d", m.req.Window, m.limit()))

	var right []string
	if m.refreshing {
		right = append(right, m.spinner.View())
	}
	if stats := m.state.Stats; stats.Skipped > 0 {
		right = append(right, m.styles.err.Render(fmt.Sprintf("%d skipped", stats.Skipped)))
	}
	if !m.state.FetchedAt.IsZero() {
		right = append(right, "updated "+m.state.FetchedAt.Format("15:04:05"))
	}
	switch {
	case m.credentialErr != nil:
		right = append(right, m.styles.err.Render("auth: "+m.credentialErr.Error()))
	case !m.credentialExpiry.IsZero():
		right = append(right, "token until "+m.credentialExpiry.Format("15:04"))
	}
	rightLine := m.styles.status.Render(strings.Join(right, " • "))

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(rightLine), 1)
	return left + strings.Repeat(" ", gap) + rightLine
}

func (m Model) limit() int {
	if m.req.Limit <= 0 {
		return gmail.DefaultLimit
	}
	return m.req.Limit
}

func (m Model) listRows() int {
	rows := max(m.height/3, minListRows)
	return min(rows, len(m.state.Messages))
}

func (m Model) bodyWidth() int {
	if m.width <= 0 {
		return m.uiConfig.BodyWidth
	}
	return min(m.width, m.uiConfig.BodyWidth)
}

// layoutBody sizes the message viewport to whatever the list, status line
// and help leave over, and loads the selected message into it.
func (m *Model) layoutBody() {
	m.body.Width = m.bodyWidth()
	if m.height > 0 {
		used := 1 + m.listRows() + 1 + 1 + lipgloss.Height(m.help.View(m.keys))
		m.body.Height = max(m.height-used, 1)
	}
	if m.cursor >= len(m.state.Messages) {
		m.body.SetContent("")
		return
	}
	msg := m.state.Messages[m.cursor]
	header := fmt.Sprintf("From: %s\nDate: %s\nSubject: %s\n\n", msg.From, msg.FormattedDate, msg.Subject)
	m.body.SetContent(header + wordwrap.String(msg.Content, m.body.Width))
	m.body.GotoTop()
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

func windowTitle(code string) string {
	if code == "" {
		return windowTitleSuffix
	}
	return code + " - " + windowTitleSuffix
}
