package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Asaas        AsaasConfig
	MercadoPago  MercadoPagoConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Payouts      PayoutsConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GTCLICKS_APP_ENV" required:"true"`
	Port         string `envconfig:"GTCLICKS_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"GTCLICKS_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"GTCLICKS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GTCLICKS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"GTCLICKS_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"GTCLICKS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GTCLICKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GTCLICKS_DB_DSN"`
	Driver string `envconfig:"GTCLICKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GTCLICKS_DB_HOST"`
	LegacyPort     int    `envconfig:"GTCLICKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GTCLICKS_DB_USER"`
	LegacyPassword string `envconfig:"GTCLICKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"GTCLICKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"GTCLICKS_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"GTCLICKS_SQLITE_PATH" default:"gtclicks-dev.db"`

	MaxOpenConns    int           `envconfig:"GTCLICKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GTCLICKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GTCLICKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GTCLICKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxMaxRetries int           `envconfig:"GTCLICKS_DB_TX_MAX_RETRIES" default:"3"`
	SlowQuery    time.Duration `envconfig:"GTCLICKS_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GTCLICKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GTCLICKS_REDIS_ADDR"`
	Password     string        `envconfig:"GTCLICKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"GTCLICKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GTCLICKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GTCLICKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GTCLICKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GTCLICKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GTCLICKS_REDIS_WRITE_TIMEOUT" default:"5s"`

	WebhookDeliveryTTL time.Duration `envconfig:"GTCLICKS_REDIS_WEBHOOK_DELIVERY_TTL" default:"24h"`
	ConfigCacheTTL     time.Duration `envconfig:"GTCLICKS_REDIS_CONFIG_CACHE_TTL" default:"1m"`
}

// JWTConfig verifies access tokens minted by the auth service.
type JWTConfig struct {
	Secret            string `envconfig:"GTCLICKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GTCLICKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GTCLICKS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GTCLICKS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GTCLICKS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"GTCLICKS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"GTCLICKS_PUBSUB_LEDGER_TOPIC" default:"gtclicks-ledger-events"`
	LedgerSubscription string `envconfig:"GTCLICKS_PUBSUB_LEDGER_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GTCLICKS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"GTCLICKS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"GTCLICKS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"GTCLICKS_OUTBOX_RETENTION" default:"720h"`
	MetricsAddr    string        `envconfig:"GTCLICKS_OUTBOX_METRICS_ADDR"`
}

type AsaasConfig struct {
	APIKey               string        `envconfig:"GTCLICKS_ASAAS_API_KEY"`
	Sandbox              bool          `envconfig:"GTCLICKS_ASAAS_SANDBOX" default:"false"`
	WebhookToken         string        `envconfig:"GTCLICKS_ASAAS_WEBHOOK_TOKEN"`
	TransferWebhookToken string        `envconfig:"GTCLICKS_ASAAS_WEBHOOK_TRANSFER_TOKEN"`
	Timeout              time.Duration `envconfig:"GTCLICKS_ASAAS_TIMEOUT" default:"15s"`
}

// Configured reports whether automatic PIX transfers are available.
func (a AsaasConfig) Configured() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

// BaseURL returns the API host for the configured environment.
func (a AsaasConfig) BaseURL() string {
	if a.Sandbox {
		return "https://api-sandbox.asaas.com"
	}
	return "https://api.asaas.com"
}

// TransferToken returns the token expected on transfer webhooks, falling back
// to the payment webhook token.
func (a AsaasConfig) TransferToken() string {
	if token := strings.TrimSpace(a.TransferWebhookToken); token != "" {
		return token
	}
	return strings.TrimSpace(a.WebhookToken)
}

type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"GTCLICKS_MERCADOPAGO_ACCESS_TOKEN"`
	WebhookSecret string        `envconfig:"GTCLICKS_MERCADOPAGO_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"GTCLICKS_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout       time.Duration `envconfig:"GTCLICKS_MERCADOPAGO_TIMEOUT" default:"10s"`
}

type StripeConfig struct {
	Secret    string        `envconfig:"GTCLICKS_STRIPE_SECRET"`
	Env       string        `envconfig:"GTCLICKS_STRIPE_ENV" default:"test"`
	Tolerance time.Duration `envconfig:"GTCLICKS_STRIPE_SIGNATURE_TOLERANCE" default:"5m"`
}

// Live reports whether only livemode events are accepted.
func (s StripeConfig) Live() bool {
	return strings.EqualFold(strings.TrimSpace(s.Env), "live")
}

type SendgridConfig struct {
	APIKey      string `envconfig:"GTCLICKS_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"GTCLICKS_SENDGRID_FROM_EMAIL" default:"no-reply@gtclicks.com.br"`
	FromName    string `envconfig:"GTCLICKS_SENDGRID_FROM_NAME" default:"GT Clicks"`
}

type PayoutsConfig struct {
	TransferTimeout time.Duration `envconfig:"GTCLICKS_PAYOUTS_TRANSFER_TIMEOUT" default:"20s"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"GTCLICKS_CRON_INTERVAL" default:"15m"`
	StaleWithdrawalAfter time.Duration `envconfig:"GTCLICKS_CRON_STALE_WITHDRAWAL_AFTER" default:"24h"`
	PendingOrderTTL      time.Duration `envconfig:"GTCLICKS_CRON_PENDING_ORDER_TTL" default:"72h"`
	JobTimeout           time.Duration `envconfig:"GTCLICKS_CRON_JOB_TIMEOUT" default:"5m"`

	NotificationRetention time.Duration `envconfig:"GTCLICKS_CRON_NOTIFICATION_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
