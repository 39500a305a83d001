package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gtclicks/ledger-backend/api/routes"
	"github.com/gtclicks/ledger-backend/internal/audit"
	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/internal/notifications"
	"github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/internal/payouts"
	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	"github.com/gtclicks/ledger-backend/internal/settlement"
	"github.com/gtclicks/ledger-backend/internal/transferauth"
	"github.com/gtclicks/ledger-backend/internal/users"
	paymentwebhooks "github.com/gtclicks/ledger-backend/internal/webhooks"
	asaaswebhook "github.com/gtclicks/ledger-backend/internal/webhooks/asaas"
	mercadopagowebhook "github.com/gtclicks/ledger-backend/internal/webhooks/mercadopago"
	stripewebhook "github.com/gtclicks/ledger-backend/internal/webhooks/stripe"
	"github.com/gtclicks/ledger-backend/internal/withdrawals"
	"github.com/gtclicks/ledger-backend/pkg/asaas"
	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/idempotency"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/mailer"
	"github.com/gtclicks/ledger-backend/pkg/mercadopago"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
	"github.com/gtclicks/ledger-backend/pkg/migrate"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
	"github.com/gtclicks/ledger-backend/pkg/redis"
	pkgstripe "github.com/gtclicks/ledger-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	ordersRepo := orders.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	usersRepo := users.NewRepository(conn)
	noticeStore := notifications.NewStore(conn)
	auditRecorder := audit.NewRecorder(conn, logg)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	settings, err := platformconfig.NewService(platformconfig.ServiceParams{
		Repository: platformconfig.NewRepository(conn),
		TxRunner:   dbClient,
		Cache:      redisClient,
		CacheTTL:   cfg.Redis.ConfigCacheTTL,
		Audit:      auditRecorder,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create platform config service", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Store:   noticeStore,
		Users:   ordersRepo,
		Mailer:  buildMailer(cfg, logg),
		Logger:  logg,
		BaseURL: cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		TxRunner: dbClient,
		Orders:   ordersRepo,
		Ledger:   ledgerRepo,
		Config:   settings,
		Outbox:   outboxService,
		Notifier: notifier,
		Metrics:  ledgerMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	var gateway payouts.TransferGateway
	if cfg.Asaas.Configured() {
		asaasClient, err := asaas.NewClient(cfg.Asaas.APIKey, asaas.WithBaseURL(cfg.Asaas.BaseURL()), asaas.WithTimeout(cfg.Asaas.Timeout))
		if err != nil {
			logg.Error(context.Background(), "failed to create asaas client", err)
			os.Exit(1)
		}
		gateway = payouts.NewAsaasGateway(asaasClient, cfg.Payouts.TransferTimeout)
	} else {
		logg.Warn(context.Background(), "asaas not configured, withdrawals require manual confirmation")
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		TxRunner:      dbClient,
		Withdrawals:   withdrawals.NewRepository(conn),
		Ledger:        ledgerRepo,
		Photographers: usersRepo,
		Config:        settings,
		Gateway:       gateway,
		Outbox:        outboxService,
		Audit:         auditRecorder,
		Notifier:      notifier,
		Metrics:       ledgerMetrics,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	transferHandler, err := transferauth.NewHandler(payoutService, cfg.Asaas.TransferToken(), ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer authorization handler", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, settings)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	inbox, err := notifications.NewInbox(noticeStore)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification inbox", err)
		os.Exit(1)
	}

	deliveries, err := idempotency.NewManager(redisClient, cfg.Redis.WebhookDeliveryTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery cache", err)
		os.Exit(1)
	}
	dispatcher, err := paymentwebhooks.NewDispatcher(paymentwebhooks.DispatcherParams{
		Settlement: settlementService,
		Cache:      deliveries,
		Metrics:    ledgerMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dispatcher", err)
		os.Exit(1)
	}

	mpClient := buildMercadoPago(cfg, logg)
	var searcher settlement.PaymentSearcher
	if mpClient != nil {
		searcher = mpClient
	}
	verifier := settlement.NewVerifier(settlementService, ordersRepo, searcher)

	parsers := routes.PaymentParsers{
		Asaas:       asaaswebhook.NewParser(cfg.Asaas.WebhookToken, logg),
		MercadoPago: buildMercadoPagoParser(cfg, mpClient, logg),
		Stripe:      buildStripeParser(cfg, logg),
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			prometheus.DefaultGatherer,
			parsers,
			dispatcher,
			transferHandler,
			verifier,
			usersRepo,
			ledgerService,
			payoutService,
			settings,
			inbox,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config, logg *logger.Logger) mailer.Sender {
	if strings.TrimSpace(cfg.Sendgrid.APIKey) == "" {
		logg.Warn(context.Background(), "sendgrid not configured, transactional email disabled")
		return mailer.NopSender{}
	}
	sender, err := mailer.NewSendgrid(cfg.Sendgrid)
	if err != nil {
		logg.Error(context.Background(), "failed to create sendgrid sender", err)
		os.Exit(1)
	}
	return sender
}

func buildMercadoPago(cfg *config.Config, logg *logger.Logger) *mercadopago.Client {
	if strings.TrimSpace(cfg.MercadoPago.AccessToken) == "" {
		logg.Warn(context.Background(), "mercadopago not configured, payment lookups disabled")
		return nil
	}
	client, err := mercadopago.NewClient(cfg.MercadoPago.AccessToken,
		mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL),
		mercadopago.WithTimeout(cfg.MercadoPago.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercadopago client", err)
		os.Exit(1)
	}
	return client
}

func buildMercadoPagoParser(cfg *config.Config, client *mercadopago.Client, logg *logger.Logger) paymentwebhooks.Parser {
	params := mercadopagowebhook.Params{Secret: cfg.MercadoPago.WebhookSecret, Logger: logg}
	if client != nil {
		params.Payments = client
	}
	return mercadopagowebhook.NewParser(params)
}

// buildStripeParser verifies signatures when a signing secret is configured.
// Outside production an unsigned parser keeps local testing possible.
func buildStripeParser(cfg *config.Config, logg *logger.Logger) paymentwebhooks.Parser {
	client, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err == nil {
		return stripewebhook.NewParser(client, logg)
	}
	if cfg.App.IsProd() {
		logg.Warn(context.Background(), "stripe webhooks disabled: "+err.Error())
		return nil
	}
	return stripewebhook.NewParser(nil, logg)
}
