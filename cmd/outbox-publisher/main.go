package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
	"github.com/gtclicks/ledger-backend/pkg/migrate"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
	"github.com/gtclicks/ledger-backend/pkg/outbox/registry"
	"github.com/gtclicks/ledger-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

// dlqCommand is an operator action that runs instead of the publish loop.
type dlqCommand struct {
	list    bool
	requeue string
}

func main() {
	var cmd dlqCommand
	flag.BoolVar(&cmd.list, "list-dlq", false, "print the most recent dead-lettered events and exit")
	flag.StringVar(&cmd.requeue, "requeue", "", "outbox event id to move from the DLQ back to the publish queue")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	if err := run(logg, cmd); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(logg *logger.Logger, cmd dlqCommand) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"topic":       cfg.PubSub.LedgerTopic,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	dlq := outbox.NewDLQRepository(dbClient.DB())
	if cmd.list || cmd.requeue != "" {
		return runDLQCommand(ctx, logg, dlq, cmd, os.Stdout)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: dlq,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}

	if addr := cfg.Outbox.MetricsAddr; addr != "" {
		srv := serveMetrics(ctx, logg, addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logg.Info(ctx, "starting outbox publisher")
	err = service.Run(ctx)
	logg.Info(ctx, "outbox publisher shutting down")
	return err
}

// serveMetrics exposes /metrics on its own listener; the publisher has no
// other HTTP surface.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	return srv
}

type dlqAdmin interface {
	ListRecent(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

func runDLQCommand(ctx context.Context, logg *logger.Logger, dlq dlqAdmin, cmd dlqCommand, out io.Writer) error {
	if cmd.requeue != "" {
		eventID, err := uuid.Parse(cmd.requeue)
		if err != nil {
			return fmt.Errorf("invalid -requeue event id: %w", err)
		}
		if err := dlq.Requeue(ctx, eventID); err != nil {
			return fmt.Errorf("requeue %s: %w", eventID, err)
		}
		logg.Info(logg.WithField(ctx, "event_id", eventID.String()), "outbox.event_requeued")
		return nil
	}

	rows, err := dlq.ListRecent(ctx, 50)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	for _, row := range rows {
		msg := ""
		if row.ErrorMessage != nil {
			msg = *row.ErrorMessage
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
			row.FailedAt.UTC().Format(time.RFC3339), row.EventID, row.EventType, row.ErrorReason, msg)
	}
	return nil
}
