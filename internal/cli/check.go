package cli

import (
	"fmt"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"

	"github.com/spf13/cobra"
)

// NewCheckCmd audits stored questions for the single-correct-alternative rule.
func NewCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report questions that do not have exactly one correct alternative",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			store, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := app.New(store, nil, logger).Rooms.AuditQuestions(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				logger.Warn().Str("question", id).Msg("question does not have exactly one correct alternative")
			}
			if len(ids) > 0 {
				return fmt.Errorf("%d invalid question(s)", len(ids))
			}
			logger.Info().Msg("all questions have exactly one correct alternative")
			return nil
		},
	}
}
