package config

type UIConfig struct {
	RefreshIntervalSeconds int   `toml:"refresh_interval_seconds"`
	BodyWidth              int   `toml:"body_width"`
	Theme                  Theme `toml:"theme"`
}

// Theme holds the handful of colors the dashboard uses.
type Theme struct {
	Accent string `toml:"accent"`
	Code   string `toml:"code"`
	Dim    string `toml:"dim"`
	Error  string `toml:"error"`
	Border string `toml:"border"`
}

func (u UIConfig) WithDefaults() UIConfig {
	if u.RefreshIntervalSeconds == 0 {
		u.RefreshIntervalSeconds = 60
	}
	if u.BodyWidth <= 0 {
		u.BodyWidth = 100
	}
	if u.Theme.Accent == "" {
		u.Theme.Accent = "#88C0D0"
	}
	if u.Theme.Code == "" {
		u.Theme.Code = "#A3BE8C"
	}
	if u.Theme.Dim == "" {
		u.Theme.Dim = "#4C566A"
	}
	if u.Theme.Error == "" {
		u.Theme.Error = "#BF616A"
	}
	if u.Theme.Border == "" {
		u.Theme.Border = "#3B4252"
	}
	return u
}
