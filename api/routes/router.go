package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/api/controllers"
	ordercontrollers "github.com/gtclicks/ledger-backend/api/controllers/orders"
	webhookcontrollers "github.com/gtclicks/ledger-backend/api/controllers/webhooks"
	"github.com/gtclicks/ledger-backend/api/middleware"
	"github.com/gtclicks/ledger-backend/internal/ledger"
	internalorders "github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/internal/payouts"
	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	"github.com/gtclicks/ledger-backend/internal/settlement"
	"github.com/gtclicks/ledger-backend/internal/transferauth"
	paymentwebhooks "github.com/gtclicks/ledger-backend/internal/webhooks"
	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
	"github.com/gtclicks/ledger-backend/pkg/redis"
)

type paymentDispatcher interface {
	Dispatch(ctx context.Context, event *paymentwebhooks.PaymentEvent) (paymentwebhooks.Outcome, error)
}

type transferAuthorizer interface {
	Decide(ctx context.Context, token string, cb *transferauth.Callback) transferauth.Decision
	HandleEvent(ctx context.Context, token string, event *transferauth.Event) error
}

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, input settlement.VerifyInput) (*internalorders.VerifyResult, error)
}

type photographerFinder interface {
	FindPhotographerByUserID(ctx context.Context, userID uuid.UUID) (*models.Photographer, error)
}

type payoutService interface {
	Request(ctx context.Context, input payouts.RequestInput) (*payouts.Result, error)
	ListForPhotographer(ctx context.Context, photographerID uuid.UUID, params pagination.Params) (*payouts.ListResult, error)
	ListAll(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) (*payouts.ListResult, error)
	GatewayBalance(ctx context.Context) (decimal.Decimal, error)
	Approve(ctx context.Context, input payouts.AdminInput) (*payouts.Result, error)
	Cancel(ctx context.Context, input payouts.AdminInput) (*payouts.Result, error)
	Retry(ctx context.Context, input payouts.AdminInput) (*payouts.Result, error)
	ConfirmManual(ctx context.Context, input payouts.AdminInput) (*payouts.Result, error)
}

type platformSettings interface {
	Set(ctx context.Context, input platformconfig.SetInput) (*models.PlatformConfig, error)
	History(ctx context.Context, key string, limit int) ([]models.PlatformConfig, error)
}

// PaymentParsers holds the per-provider webhook parsers. A nil parser
// answers 500 so the provider keeps redelivering until it is configured.
type PaymentParsers struct {
	Asaas       paymentwebhooks.Parser
	MercadoPago paymentwebhooks.Parser
	Stripe      paymentwebhooks.Parser
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	parsers PaymentParsers,
	dispatcher paymentDispatcher,
	transferHandler transferAuthorizer,
	verifier paymentVerifier,
	photographers photographerFinder,
	ledgerService ledger.Service,
	payoutSvc payoutService,
	settings platformSettings,
	inbox controllers.NotificationInbox,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := []controllers.Dependency{{Name: "database", Pinger: dbP}}
	if redisClient != nil {
		readiness = append(readiness, controllers.Dependency{Name: "redis", Pinger: redisClient})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})
	r.Method(http.MethodGet, "/metrics", controllers.Metrics(gatherer))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/asaas", webhookcontrollers.PaymentWebhook(enums.PaymentProviderAsaas, parsers.Asaas, dispatcher, logg))
		r.Post("/mercadopago", webhookcontrollers.PaymentWebhook(enums.PaymentProviderMercadoPago, parsers.MercadoPago, dispatcher, logg))
		r.Post("/stripe", webhookcontrollers.PaymentWebhook(enums.PaymentProviderStripe, parsers.Stripe, dispatcher, logg))
		r.Post("/asaas/transfer-authorization", webhookcontrollers.TransferAuthorization(transferHandler, logg))
		r.Post("/asaas/transfer-events", webhookcontrollers.TransferEvents(transferHandler, logg))
	})

	idempotency := middleware.Idempotency(nil, logg)
	if redisClient != nil {
		idempotency = middleware.Idempotency(redisClient, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)

		r.With(middleware.RequireRole(logg, enums.UserRoleBuyer, enums.UserRoleAdmin)).
			Post("/orders/{orderId}/verify-payment", ordercontrollers.VerifyPayment(verifier, logg))

		r.Route("/photographers/me", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRolePhotographer))
			r.Get("/balance", controllers.PhotographerBalance(photographers, ledgerService, logg))
			r.Get("/withdrawals", controllers.ListMyWithdrawals(photographers, payoutSvc, logg))
			r.Post("/withdrawals", controllers.RequestWithdrawal(photographers, payoutSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(inbox, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(inbox, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(inbox, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(idempotency)

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.AdminListWithdrawals(payoutSvc, logg))
			r.Post("/{withdrawalId}/approve", controllers.AdminWithdrawalAction("approve", payoutSvc.Approve, logg))
			r.Post("/{withdrawalId}/cancel", controllers.AdminWithdrawalAction("cancel", payoutSvc.Cancel, logg))
			r.Post("/{withdrawalId}/retry", controllers.AdminWithdrawalAction("retry", payoutSvc.Retry, logg))
			r.Post("/{withdrawalId}/confirm-manual", controllers.AdminWithdrawalAction("confirm_manual", payoutSvc.ConfirmManual, logg))
		})
		r.Get("/payouts/gateway-balance", controllers.AdminGatewayBalance(payoutSvc, logg))
		r.Get("/config/{key}", controllers.AdminConfigHistory(settings, logg))
		r.Put("/config/{key}", controllers.AdminUpdateConfig(settings, logg))
	})

	return r
}
