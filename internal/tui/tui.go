// Package tui is the live dashboard behind `otpwatch watch`.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/config"
)

type viewMode int

const (
	viewCodes viewMode = iota
	viewMessages
)

// Model is the dashboard state. All mail state lives in app.State; the
// model only tracks what is on screen.
type Model struct {
	ctx context.Context
	app *app.App
	req app.Request

	view     viewMode
	keys     keyMap
	styles   styles
	uiConfig config.UIConfig

	width    int
	height   int
	spinner  spinner.Model
	help     help.Model
	body     viewport.Model
	showHelp bool

	state      app.State
	loaded     bool
	refreshing bool
	// requeued marks a request change made while a refresh was in flight.
	requeued bool
	cursor   int

	credentialExpiry time.Time
	credentialErr    error
}

func New(
	ctx context.Context,
	a *app.App,
	req app.Request,
	uiConfig config.UIConfig,
	keyMapCfg config.KeyMap,
) Model {
	uiConfig = uiConfig.WithDefaults()
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		ctx:        ctx,
		app:        a,
		req:        req,
		keys:       keyMapFromConfig(keyMapCfg),
		styles:     newStyles(uiConfig.Theme),
		uiConfig:   uiConfig,
		spinner:    s,
		help:       newHelpModel(uiConfig.Theme),
		body:       viewport.New(0, 0),
		refreshing: true,
	}
}

// Init kicks off the first fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(),
		m.spinner.Tick,
		m.autoRefreshCmd(),
		tea.SetWindowTitle(windowTitle("")),
	)
}

// NewProgram wires the model to the terminal. Callers that need to push
// messages in from other goroutines (credential renewals) keep the program.
func NewProgram(ctx context.Context, m Model) *tea.Program {
	return tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
}

// CredentialMsg reports the background refresher's progress.
type CredentialMsg struct {
	Expiry time.Time
	Err    error
}
