package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"go.withmatt.com/otpwatch/internal/config"
)

type keyMap struct {
	view viewMode

	Refresh    key.Binding
	ToggleView key.Binding
	Window     key.Binding
	More       key.Binding
	Fewer      key.Binding
	Up         key.Binding
	Down       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func keyMapFromConfig(cfg config.KeyMap) keyMap {
	cfg = cfg.WithDefaults()
	return keyMap{
		Refresh:    makeBinding(cfg.Refresh, "refresh"),
		ToggleView: makeBinding(cfg.ToggleView, "codes/messages"),
		Window:     makeBinding(cfg.Window, "time window"),
		More:       makeBinding(cfg.More, "more"),
		Fewer:      makeBinding(cfg.Fewer, "fewer"),
		Up:         makeBinding(cfg.Up, "up"),
		Down:       makeBinding(cfg.Down, "down"),
		Help:       makeBinding(cfg.Help, "help"),
		Quit:       makeBinding(cfg.Quit, "quit"),
	}
}

func makeBinding(keys []string, desc string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(formatHelpKeys(keys), desc),
	)
}

func formatHelpKeys(keys []string) string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		label := formatKeyLabel(k)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return strings.Join(out, "/")
}

func formatKeyLabel(k string) string {
	switch k {
	case "up":
		return "↑"
	case "down":
		return "↓"
	case " ":
		return "space"
	default:
		return k
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	if k.view == viewMessages {
		return []key.Binding{k.Up, k.Down, k.Refresh, k.ToggleView, k.Help, k.Quit}
	}
	return []key.Binding{k.Refresh, k.ToggleView, k.Window, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Refresh, k.ToggleView},
		{k.Window, k.More, k.Fewer},
		{k.Help, k.Quit},
	}
}
