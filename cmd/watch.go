package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/log"
	"go.withmatt.com/otpwatch/internal/mailtext"
	"go.withmatt.com/otpwatch/internal/oauth"
	"go.withmatt.com/otpwatch/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live verification code dashboard",
	Long: `Open a dashboard showing the latest verification codes and the messages
they came from. It refreshes on demand and on an interval, and keeps the
OAuth credential fresh in the background.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addQueryFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := requestFromFlags(cmd, s.cfg.Codes.Query, s.cfg.Codes.Limit)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(s.cfg.Codes.Phrases)
	if err != nil {
		return err
	}

	// Consent, if any, happens here while the terminal is still ours.
	client, err := s.client(cmd.Context(), mailtext.ModeClean)
	if err != nil {
		return err
	}

	log.SetWarnOutput(io.Discard)
	defer log.SetWarnOutput(os.Stderr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	model := tui.New(gctx, app.New(client, extractor), req, s.cfg.UI, s.cfg.Keys)
	p := tui.NewProgram(gctx, model)

	refresher := &oauth.Refresher{
		Store:    s.store,
		Interval: s.refreshInterval(),
		OnRenew: func(expiry time.Time) {
			p.Send(tui.CredentialMsg{Expiry: expiry})
		},
	}

	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("error running dashboard: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// The dashboard keeps running on a dead credential so the last
		// codes stay on screen; the failure shows in its status line.
		if err := refresher.Run(gctx); err != nil {
			p.Send(tui.CredentialMsg{Err: err})
		}
		return nil
	})
	return g.Wait()
}
