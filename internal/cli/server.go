package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/infra/memory"
	redisrelay "quiz-room-service/internal/infra/redis"
	transport "quiz-room-service/internal/transport/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing service")
		}
	}()

	requestTimeout := config.Duration(cfg.Server.RequestTimeout, 5*time.Second)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, logger, requestTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server...")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService picks Postgres and Redis when configured and falls back to
// the in-memory store and relay otherwise.
func buildService(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app.Service, error) {
	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = pg
		logger.Info().Msg("using postgres store")
	} else {
		logger.Warn().Msg("postgres not configured, state is kept in memory")
	}

	var relay app.Relay = memory.NewRelay()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = store.Close()
			return nil, err
		}
		ttl := config.Duration(cfg.Redis.TTL, 10*time.Minute)
		relay = redisrelay.NewRelay(client, ttl, logger)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis relay")
	}

	return app.New(store, relay, logger), nil
}
