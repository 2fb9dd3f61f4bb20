package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/config"
)

// NewSweepCmd deletes abandoned sessions once.
func NewSweepCmd(configPath *string) *cobra.Command {
	var minAge string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete abandoned sessions (no results, never finished)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, store, err := commandEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			age := config.Duration(cfg.Session.SweepMinAge, app.DefaultSweepMinAge)
			if minAge != "" {
				age = config.Duration(minAge, age)
			}
			n, err := app.NewSweeper(store.ledger, store.results, age, app.WithLogger(log)).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d abandoned sessions\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&minAge, "min-age", "", "only sweep sessions older than this (e.g. 30m)")
	return cmd
}

// NewStatsCmd prints the overview, or one session summary with --session.
func NewStatsCmd(configPath *string) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print accuracy statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, store, err := commandEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats := app.NewStatsService(store.quizzes, store.ledger, store.results, app.WithLogger(log))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if sessionID != "" {
				summary, err := stats.SessionSummary(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				return enc.Encode(summary)
			}
			overview, err := stats.Overview(cmd.Context())
			if err != nil {
				return err
			}
			return enc.Encode(overview)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "print the summary of one session")
	return cmd
}
