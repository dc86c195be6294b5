package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-service/internal/resilience"
)

var (
	retrySessionToken string
	retryConfirm      bool
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Trigger a server-side re-enrichment job",
	Long:  "Fires the re-enrichment endpoint for the given session. The response is best-effort; run watch afterwards to observe the new enrichment pass.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if retrySessionToken == "" {
			return eris.New("--session-token is required")
		}

		ctx := cmd.Context()
		client := newProfileClient(retrySessionToken)
		if err := client.TriggerReenrich(ctx); err != nil {
			// The trigger is advisory: the poll loop is the source of truth.
			zap.L().Warn("re-enrichment trigger failed", zap.Error(err))
			return nil
		}
		zap.L().Info("re-enrichment triggered")

		if !retryConfirm {
			return nil
		}

		// One confirmation fetch after the job has had a moment to register.
		if err := resilience.Wait(ctx, cfg.Briefing.InitialDelay()); err != nil {
			return nil
		}
		payload, err := client.FetchContext(ctx)
		if err != nil {
			zap.L().Warn("confirmation fetch failed", zap.Error(err))
			return nil
		}
		zap.L().Info("enrichment state after trigger",
			zap.String("status", payload.MetaStatus()),
			zap.Bool("enriched", payload.ProfileEnriched),
		)
		return nil
	},
}

func init() {
	retryCmd.Flags().StringVar(&retrySessionToken, "session-token", "", "authenticated session cookie value")
	retryCmd.Flags().BoolVar(&retryConfirm, "confirm", false, "fetch the enrichment state once after triggering")
	rootCmd.AddCommand(retryCmd)
}
