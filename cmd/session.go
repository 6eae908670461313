package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/config"
	"go.withmatt.com/otpwatch/internal/gmail"
	"go.withmatt.com/otpwatch/internal/mailtext"
	"go.withmatt.com/otpwatch/internal/oauth"
	"go.withmatt.com/otpwatch/internal/rate"
)

// session is everything a command needs to talk to the mailbox.
type session struct {
	cfg     *config.Config
	store   *oauth.Store
	limiter rate.Limiter
	stop    func()
}

func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, store: store, stop: func() {}}
	if rps := cfg.Fetch.RequestsPerSecond; rps > 0 {
		tb := rate.NewTokenBucket(rps)
		s.limiter = tb
		s.stop = tb.Stop
	} else {
		s.limiter = rate.Unlimited{}
	}
	return s, nil
}

func newStore(cfg *config.Config) (*oauth.Store, error) {
	tokenPath, err := cfg.TokenPath()
	if err != nil {
		return nil, fmt.Errorf("unable to resolve token path: %w", err)
	}

	var backend oauth.Backend = oauth.FileBackend{Path: tokenPath}
	if cfg.Auth.TokenStore == config.TokenStoreKeyring {
		backend = oauth.KeyringBackend{Account: cfg.Auth.KeyringAccount}
	}

	return &oauth.Store{
		Backend: backend,
		Config: func() (*oauth2.Config, error) {
			path, err := cfg.ClientSecretPath()
			if err != nil {
				return nil, err
			}
			return oauth.ClientConfig(path)
		},
		Authorizer: oauth.BrowserAuthorizer{Prompt: os.Stderr},
		LockPath:   tokenPath + ".lock",
	}, nil
}

func (s *session) Close() {
	s.stop()
}

// client authenticates, running consent if needed, and builds a Gmail
// client whose transport reads renewed tokens back from the store.
func (s *session) client(ctx context.Context, content mailtext.Mode) (*gmail.Client, error) {
	tok, err := s.store.LoadOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	factory := &gmail.Factory{
		Limiter: s.limiter,
		Content: content,
	}
	return factory.Build(ctx, s.store.TokenSource(ctx, tok))
}

func (s *session) refreshInterval() time.Duration {
	return time.Duration(s.cfg.Auth.RefreshIntervalMinutes) * time.Minute
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("query", "q", "", "Gmail search query (default from config)")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of messages to fetch (default from config)")
	cmd.Flags().String("since", string(app.WindowAll), "only mail received within: today, 3d, 7d, 30d or all")
}

func requestFromFlags(cmd *cobra.Command, query string, limit int) (app.Request, error) {
	if cmd.Flags().Changed("query") {
		query, _ = cmd.Flags().GetString("query")
	}
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
		if limit < 1 || limit > gmail.MaxLimit {
			return app.Request{}, fmt.Errorf("--limit must be between 1 and %d", gmail.MaxLimit)
		}
	}
	since, _ := cmd.Flags().GetString("since")
	window, err := app.ParseWindow(since)
	if err != nil {
		return app.Request{}, err
	}
	return app.Request{Query: query, Window: window, Limit: limit}, nil
}
