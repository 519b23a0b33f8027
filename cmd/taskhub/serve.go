package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskhub/internal/auth"
	"github.com/gosuda/taskhub/internal/config"
	"github.com/gosuda/taskhub/internal/messenger"
	taskslack "github.com/gosuda/taskhub/internal/messenger/slack"
	"github.com/gosuda/taskhub/internal/notify"
	"github.com/gosuda/taskhub/internal/server"
	"github.com/gosuda/taskhub/internal/service"
	"github.com/gosuda/taskhub/internal/store/postgres"
	redisstore "github.com/gosuda/taskhub/internal/store/redis"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// openStore loads the configuration and connects to PostgreSQL.
func openStore(ctx context.Context) (*config.Config, *postgres.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked in config
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runServe(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Database.AutoMigrate {
		version, migrateErr := store.Migrate(ctx)
		if migrateErr != nil {
			return migrateErr
		}
		log.Info().Int("schema_version", version).Msg("migrations up to date")
	}

	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	opts := []service.Option{service.WithEvents(pubsub)}
	if cfg.Slack.BotToken != "" {
		slackMessenger := messenger.NewGuarded(
			taskslack.NewSlackMessenger(slacklib.New(cfg.Slack.BotToken)),
			messenger.BreakerConfig{MaxFailures: cfg.Breaker.MaxFailures, OpenTimeout: cfg.Breaker.OpenTimeout},
		)
		opts = append(opts, service.WithNotifier(notify.New(store.Users(), slackMessenger)))
		log.Info().Msg("slack notifications enabled")
	}

	tasks := service.NewTaskService(store, opts...)
	srv := server.New(ctx, cfg, server.Deps{
		DB:          store,
		Auth:        auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Departments: service.NewDepartmentService(store, opts...),
		Projects:    service.NewProjectService(store, opts...),
		Tasks:       tasks,
		History:     tasks,
		Users:       service.NewUserService(store, opts...),
		Events:      pubsub,
		Actors:      store.Users(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("stopped")
	return nil
}
