package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"go.withmatt.com/otpwatch/internal/app"
	"go.withmatt.com/otpwatch/internal/gmail"
	"go.withmatt.com/otpwatch/internal/log"
	"go.withmatt.com/otpwatch/internal/mailtext"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "List recent messages matching a query",
	Long: `Fetch the newest messages matching a Gmail search query and print their
headers and decoded bodies, newest first.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	addQueryFlags(fetchCmd)
	fetchCmd.Flags().String("content", "", "body rendering: clean, raw or markdown (default from config)")
	fetchCmd.Flags().Bool("json", false, "print messages as JSON")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := requestFromFlags(cmd, s.cfg.Fetch.Query, s.cfg.Fetch.Limit)
	if err != nil {
		return err
	}
	content := s.cfg.Fetch.Content
	if cmd.Flags().Changed("content") {
		content, _ = cmd.Flags().GetString("content")
	}
	mode, err := mailtext.ParseMode(content)
	if err != nil {
		return err
	}

	client, err := s.client(cmd.Context(), mode)
	if err != nil {
		return err
	}
	st := app.New(client, nil).Refresh(cmd.Context(), req)
	reportSkipped(st.Stats)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := writeJSON(out, newFetchOutput(st)); err != nil {
			return err
		}
		return fetchError(st)
	}

	if st.Empty() {
		fmt.Fprintln(out, app.NoMessages)
		return fetchError(st)
	}
	printMessages(out, st.Messages, s.cfg.UI.BodyWidth)
	return nil
}

type statsOutput struct {
	Listed   int    `json:"listed"`
	Skipped  int    `json:"skipped"`
	BadDates int    `json:"bad_dates"`
	Error    string `json:"error,omitempty"`
}

type fetchOutput struct {
	Query    string          `json:"query"`
	Messages []gmail.Message `json:"messages"`
	Stats    statsOutput     `json:"stats"`
}

func newStatsOutput(stats gmail.FetchStats) statsOutput {
	out := statsOutput{
		Listed:   stats.Listed,
		Skipped:  stats.Skipped,
		BadDates: stats.BadDates,
	}
	if stats.Err != nil {
		out.Error = stats.Err.Error()
	}
	return out
}

func newFetchOutput(st app.State) fetchOutput {
	messages := st.Messages
	if messages == nil {
		messages = []gmail.Message{}
	}
	return fetchOutput{Query: st.Query, Messages: messages, Stats: newStatsOutput(st.Stats)}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printMessages(w io.Writer, messages []gmail.Message, width int) {
	for i, m := range messages {
		if i > 0 {
			fmt.Fprintln(w, strings.Repeat("─", min(width, 40)))
		}
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		fmt.Fprintf(tw, "Subject:\t%s\n", m.Subject)
		fmt.Fprintf(tw, "From:\t%s\n", m.From)
		fmt.Fprintf(tw, "Date:\t%s\n", m.FormattedDate)
		_ = tw.Flush()
		fmt.Fprintln(w)
		fmt.Fprintln(w, wordwrap.String(m.Content, width))
	}
}

// reportSkipped surfaces a partial batch so a short listing is not mistaken
// for the whole mailbox.
func reportSkipped(stats gmail.FetchStats) {
	if stats.Skipped > 0 {
		log.Warnf("%d of %d messages could not be fetched", stats.Skipped, stats.Listed)
	}
	if stats.BadDates > 0 {
		log.Printf("%d messages had unparseable Date headers", stats.BadDates)
	}
}

func fetchError(st app.State) error {
	if st.Err != nil {
		return fmt.Errorf("unable to fetch messages: %w", st.Err)
	}
	return nil
}
