package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"go.withmatt.com/otpwatch/internal/config"
)

type styles struct {
	title    lipgloss.Style
	code     lipgloss.Style
	latest   lipgloss.Style
	dim      lipgloss.Style
	err      lipgloss.Style
	selected lipgloss.Style
	status   lipgloss.Style
	mode     lipgloss.Style
	rule     lipgloss.Style
}

func newStyles(theme config.Theme) styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Accent)).
			Bold(true),
		code: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Code)).
			Bold(true),
		latest: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Code)).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(theme.Border)),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Dim)),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Error)),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Accent)).
			Bold(true),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Dim)).
			Padding(0, 1),
		mode: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Border)).
			Background(lipgloss.Color(theme.Accent)).
			Bold(true).
			Padding(0, 1),
		rule: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Border)),
	}
}

func newHelpModel(theme config.Theme) help.Model {
	m := help.New()
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Accent)).
		Bold(true)
	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Dim))
	m.Styles.ShortKey = keyStyle
	m.Styles.ShortDesc = descStyle
	m.Styles.ShortSeparator = descStyle
	m.Styles.FullKey = keyStyle
	m.Styles.FullDesc = descStyle
	m.Styles.FullSeparator = descStyle
	m.Styles.Ellipsis = descStyle
	m.ShortSeparator = " • "
	m.FullSeparator = "    "
	return m
}
