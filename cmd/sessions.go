package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/briefing-service/internal/store"
)

var (
	sessionsOutcome string
	sessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List journaled poll sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "open journal")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate journal")
		}

		sessions, err := st.ListSessions(ctx, store.SessionFilter{
			Outcome: sessionsOutcome,
			Limit:   sessionsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list sessions")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tOUTCOME\tATTEMPTS\tQUALITY")
		for _, s := range sessions {
			outcome := s.Outcome
			if outcome == "" {
				outcome = "-"
			}
			quality := "-"
			if s.Briefing != nil && s.Briefing.QualityScore > 0 {
				quality = fmt.Sprintf("%.2f", s.Briefing.QualityScore)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), outcome, s.Attempts, quality)
		}
		return w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsOutcome, "outcome", "", "filter by outcome (ready, failed, timeout)")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 50, "maximum sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
