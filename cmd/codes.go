package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/mailtext"
	"go.withmatt.com/otpwatch/internal/verify"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Show verification codes from recent mail",
	Long: `Fetch recent verification mail and list the codes found in it, newest
first. Consecutive deliveries of the same code are shown as one row.`,
	Args: cobra.NoArgs,
	RunE: runCodes,
}

func init() {
	addQueryFlags(codesCmd)
	codesCmd.Flags().Bool("json", false, "print code groups as JSON")
	rootCmd.AddCommand(codesCmd)
}

func runCodes(cmd *cobra.Command, args []string) error {
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

	client, err := s.client(cmd.Context(), mailtext.ModeClean)
	if err != nil {
		return err
	}
	st := app.New(client, extractor).Refresh(cmd.Context(), req)
	reportSkipped(st.Stats)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		groups := st.Groups
		if groups == nil {
			groups = []verify.Group{}
		}
		err := writeJSON(out, struct {
			Query  string         `json:"query"`
			Groups []verify.Group `json:"groups"`
			Stats  statsOutput    `json:"stats"`
		}{st.Query, groups, newStatsOutput(st.Stats)})
		if err != nil {
			return err
		}
		return fetchError(st)
	}

	switch {
	case st.Empty():
		fmt.Fprintln(out, app.NoMessages)
		return fetchError(st)
	case len(st.Groups) == 0:
		fmt.Fprintf(out, "No verification codes in %d messages.\n", len(st.Messages))
		return nil
	}
	printGroups(out, st.Groups)
	return nil
}

func newExtractor(phrases []string) (*verify.Extractor, error) {
	if len(phrases) == 0 {
		return verify.Default(), nil
	}
	extractor, err := verify.NewExtractor(phrases)
	if err != nil {
		return nil, fmt.Errorf("invalid codes.phrases: %w", err)
	}
	return extractor, nil
}

func printGroups(w io.Writer, groups []verify.Group) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOUNT\tLATEST\tEARLIER")
	for _, g := range groups {
		earlier := "-"
		if len(g.Dates) > 1 {
			earlier = strings.Join(g.Dates[1:], ", ")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", g.Code, len(g.Dates), g.Latest(), earlier)
	}
	_ = tw.Flush()
}
