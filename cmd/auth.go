package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go.withmatt.com/otpwatch/internal/config"
	"go.withmatt.com/otpwatch/internal/oauth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored Gmail credential",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize otpwatch to read your mailbox",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().Bool("force", false, "discard any stored credential and run consent again")
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func loadStore() (*oauth.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	return newStore(cfg)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("force"); force {
		if err := store.Delete(); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Starting authentication...")
	tok, err := store.LoadOrRefresh(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Authenticated. Credential stored in %s.\n", store.Backend)
	if !tok.Expiry.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "Access token valid until %s.\n", tok.Expiry.Format(time.RFC1123))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	if err := store.Delete(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed credential from %s.\n", store.Backend)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	tok, err := store.Current()
	if errors.Is(err, oauth.ErrNoToken) {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in. Run 'otpwatch auth login'.")
		return nil
	}
	if err != nil {
		return err
	}

	state := "valid"
	switch {
	case tok.Expiry.IsZero():
		state = "no expiry recorded"
	case !tok.Expiry.After(time.Now()):
		state = "expired"
	}
	refresh := "absent"
	if tok.RefreshToken != "" {
		refresh = "present"
	}
	scope := oauth.Scope(tok)
	if scope == "" {
		scope = "-"
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Store:\t%s\n", store.Backend)
	fmt.Fprintf(tw, "Access token:\t%s\n", state)
	if !tok.Expiry.IsZero() {
		fmt.Fprintf(tw, "Expires:\t%s\n", tok.Expiry.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(tw, "Refresh token:\t%s\n", refresh)
	fmt.Fprintf(tw, "Scope:\t%s\n", scope)
	return tw.Flush()
}
