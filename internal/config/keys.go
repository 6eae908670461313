package config

type KeyMap struct {
	Refresh    []string `toml:"refresh"`
	ToggleView []string `toml:"toggle_view"`
	Window     []string `toml:"window"`
	More       []string `toml:"more"`
	Fewer      []string `toml:"fewer"`
	Up         []string `toml:"up"`
	Down       []string `toml:"down"`
	Help       []string `toml:"help"`
	Quit       []string `toml:"quit"`
}

func (k KeyMap) WithDefaults() KeyMap {
	if len(k.Refresh) == 0 {
		k.Refresh = []string{"r", "ctrl+r"}
	}
	if len(k.ToggleView) == 0 {
		k.ToggleView = []string{"tab"}
	}
	if len(k.Window) == 0 {
		k.Window = []string{"w"}
	}
	if len(k.More) == 0 {
		k.More = []string{"+", "="}
	}
	if len(k.Fewer) == 0 {
		k.Fewer = []string{"-"}
	}
	if len(k.Up) == 0 {
		k.Up = []string{"k", "up"}
	}
	if len(k.Down) == 0 {
		k.Down = []string{"j", "down"}
	}
	if len(k.Help) == 0 {
		k.Help = []string{"?"}
	}
	if len(k.Quit) == 0 {
		k.Quit = []string{"q", "ctrl+c"}
	}
	return k
}
