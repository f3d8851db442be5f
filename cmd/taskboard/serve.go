package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/notify"
	"github.com/gosuda/taskboard/internal/server"
	"github.com/gosuda/taskboard/internal/server/middleware"
	"github.com/gosuda/taskboard/internal/store/memory"
	"github.com/gosuda/taskboard/internal/store/postgres"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
	"github.com/gosuda/taskboard/internal/taskstore"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the task store API and board websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tasks, audit, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	broker, closeBroker, err := openBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBroker()

	var notifier taskstore.Notifier
	if cfg.Slack.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Slack.WebhookURL, cfg.Slack.Channel)
	}

	scope, err := middleware.NewBoardScope(cfg.Board.Scope, cfg.Board.ID)
	if err != nil {
		return err
	}

	svc := taskstore.NewService(tasks, audit, broker, notifier)
	srv := server.New(ctx, cfg, svc, scope)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("store", cfg.Store.Kind).
			Str("broker", cfg.Store.Broker).
			Str("board_scope", cfg.Board.Scope).
			Msg("starting server")
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (domain.TaskRepository, domain.AuditRepository, func(), error) {
	if cfg.Store.Kind == config.StoreMemory {
		log.Warn().Msg("using the in-memory task store, tasks are lost on restart")
		return memory.NewTaskRepo(), memory.NewAuditRepo(), func() {}, nil
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return store.Tasks(), store.Audit(), store.Close, nil
}

func openBroker(ctx context.Context, cfg *config.Config) (taskstore.PubSub, func(), error) {
	if cfg.Store.Broker == config.BrokerMemory {
		return memory.NewPubSub(), func() {}, nil
	}

	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return pubsub, func() {
		if err := pubsub.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}, nil
}
