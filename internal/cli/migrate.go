package cli

import (
	"context"
	"fmt"

	"quiz-room-service/internal/config"
	"quiz-room-service/internal/infra/postgres"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	store, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info().Msg("migrations applied")
	return nil
}

// openPostgres connects to the configured database and brings the schema up
// to date.
func openPostgres(ctx context.Context, cfg config.Config) (*postgres.Store, error) {
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	store, err := postgres.Open(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
