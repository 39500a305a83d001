package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gtclicks/ledger-backend/internal/audit"
	"github.com/gtclicks/ledger-backend/internal/cron"
	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/internal/notifications"
	"github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	"github.com/gtclicks/ledger-backend/internal/withdrawals"
	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
	"github.com/gtclicks/ledger-backend/pkg/migrate"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
	"github.com/gtclicks/ledger-backend/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobs := flag.String("jobs", "", "comma separated job names for -once (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	if err := run(logg, *once, splitJobs(*jobs)); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(logg *logger.Logger, once bool, jobNames []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "cron-worker"
	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Kind,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	if once {
		logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "running single cron cycle")
		return service.RunOnce(ctx, jobNames...)
	}

	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "starting cron worker")
	err = service.Run(ctx)
	logg.Info(ctx, "cron worker shutting down")
	return err
}

func closeWithLog(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, fmt.Sprintf("error closing %s", name), err)
	}
}

func splitJobs(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	ledgerRepo := ledger.NewRepository(conn)

	settings, err := platformconfig.NewService(platformconfig.ServiceParams{
		Repository: platformconfig.NewRepository(conn),
		TxRunner:   dbClient,
		Cache:      redisClient,
		CacheTTL:   cfg.Redis.ConfigCacheTTL,
		Audit:      audit.NewRecorder(conn, logg),
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	ledgerService, err := ledger.NewService(ledgerRepo, settings)
	if err != nil {
		return nil, err
	}

	orderTTL, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger: logg,
		Orders: orders.NewRepository(conn),
		TTL:    cfg.Cron.PendingOrderTTL,
	})
	if err != nil {
		return nil, err
	}
	staleWithdrawals, err := cron.NewStaleWithdrawalJob(cron.StaleWithdrawalJobParams{
		Logger:      logg,
		Withdrawals: withdrawals.NewRepository(conn),
		After:       cfg.Cron.StaleWithdrawalAfter,
	})
	if err != nil {
		return nil, err
	}
	consistency, err := cron.NewLedgerConsistencyJob(cron.LedgerConsistencyJobParams{
		Logger:   logg,
		Balances: ledgerRepo,
		Verifier: ledgerService,
	})
	if err != nil {
		return nil, err
	}
	outboxRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "outbox-retention",
		Logger:    logg,
		Purge:     outbox.NewRepository(conn).DeletePublishedBefore,
		Retention: cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}
	notificationCleanup, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "notification-cleanup",
		Logger:    logg,
		Purge:     notifications.NewStore(conn).DeleteReadBefore,
		Retention: cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(orderTTL, staleWithdrawals, consistency, outboxRetention, notificationCleanup)
}
