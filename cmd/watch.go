package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-service/internal/briefing"
)

var watchSessionToken string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run one briefing poll session in the terminal",
	Long:  "Starts a poll session for the given session token and prints phase transitions until the briefing resolves or the terminal is interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchSessionToken == "" {
			return eris.New("--session-token is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		journal := openJournal(ctx)
		if journal != nil {
			defer journal.Close() //nolint:errcheck
		}

		pcfg := pollerConfig()
		pcfg.OnUpdate = func(snap briefing.Snapshot) {
			zap.L().Info("briefing update",
				zap.String("phase", string(snap.Phase)),
				zap.String("status", string(snap.Record.Status)),
				zap.String("enrichment_status", snap.Record.EnrichmentStatus),
				zap.Int("attempt", snap.Attempts),
				zap.Int("timeline_step", snap.TimelineStep),
			)
		}

		var j briefing.Journal
		if journal != nil {
			j = journal
		}
		poller := briefing.NewPoller(newProfileClient(watchSessionToken), pcfg, j)
		poller.Start(ctx)
		done := poller.Done()

		select {
		case <-ctx.Done():
			poller.Cancel()
			zap.L().Info("watch interrupted")
			return nil
		case <-done:
		}

		snap := poller.Snapshot()
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal snapshot")
		}
		fmt.Fprintln(os.Stdout, string(out))

		if snap.Record.Status == briefing.StatusTimeout {
			return eris.New("briefing timed out waiting for enrichment")
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSessionToken, "session-token", "", "authenticated session cookie value")
	rootCmd.AddCommand(watchCmd)
}
