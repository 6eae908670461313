// Package app holds the state shared by the CLI commands and the dashboard:
// the last fetched batch and the codes found in it.
package app

import (
	"context"
	"sync"
	"time"

	"go.withmatt.com/otpwatch/internal/gmail"
	"go.withmatt.com/otpwatch/internal/log"
	"go.withmatt.com/otpwatch/internal/verify"
)

// NoMessages is shown in place of an empty batch.
const NoMessages = "No matching messages."

// Limits the dashboard steps between.
const (
	MinDashboardLimit = 5
	MaxDashboardLimit = 50
	limitStep         = 5
)

// Fetcher is satisfied by *gmail.Client.
type Fetcher interface {
	Fetch(ctx context.Context, query string, limit int) ([]gmail.Message, gmail.FetchStats)
}

type Request struct {
	Query  string
	Window Window
	Limit  int
}

// State is one refresh's worth of results. It is replaced wholesale, never
// patched, so readers never see messages from one fetch next to codes from
// another.
type State struct {
	Request   Request
	Query     string
	Messages  []gmail.Message
	Groups    []verify.Group
	Stats     gmail.FetchStats
	FetchedAt time.Time
	Err       error
}

// Empty reports whether the refresh produced nothing to show.
func (s State) Empty() bool {
	return len(s.Messages) == 0
}

// Latest is the most recent code, if any.
func (s State) Latest() (verify.Group, bool) {
	if len(s.Groups) == 0 {
		return verify.Group{}, false
	}
	return s.Groups[0], true
}

type App struct {
	Fetcher   Fetcher
	Extractor *verify.Extractor
	Clock     func() time.Time

	mu    sync.Mutex
	state State
}

func New(fetcher Fetcher, extractor *verify.Extractor) *App {
	if extractor == nil {
		extractor = verify.Default()
	}
	return &App{Fetcher: fetcher, Extractor: extractor}
}

func (a *App) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}

// Refresh fetches req and publishes the result as the current state.
func (a *App) Refresh(ctx context.Context, req Request) State {
	now := a.now()
	query := BuildQuery(req.Query, req.Window, now)
	log.Printf("Refreshing %q (limit %d)", query, req.Limit)

	messages, stats := a.Fetcher.Fetch(ctx, query, req.Limit)
	extractor := a.Extractor
	if extractor == nil {
		extractor = verify.Default()
	}
	next := State{
		Request:   req,
		Query:     query,
		Messages:  messages,
		Groups:    extractor.Group(messages),
		Stats:     stats,
		FetchedAt: now,
		Err:       stats.Err,
	}

	a.mu.Lock()
	a.state = next
	a.mu.Unlock()
	return next
}

func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// StepLimit moves limit by one dashboard step in direction dir (+1 or -1),
// staying within the dashboard's range.
func StepLimit(limit, dir int) int {
	if limit <= 0 {
		limit = gmail.DefaultLimit
	}
	next := limit + dir*limitStep
	return min(max(next, MinDashboardLimit), MaxDashboardLimit)
}
