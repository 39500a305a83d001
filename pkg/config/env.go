package config

const (
	EnvPrefix = "GTCLICKS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv       = "GTCLICKS_APP_ENV"
	EnvPort         = "GTCLICKS_APP_PORT"
	EnvDBDSN        = "GTCLICKS_DB_DSN"
	EnvDBHost       = "GTCLICKS_DB_HOST"
	EnvDBUser       = "GTCLICKS_DB_USER"
	EnvDBPassword   = "GTCLICKS_DB_PASSWORD"
	EnvDBName       = "GTCLICKS_DB_NAME"
	EnvRedisURL     = "GTCLICKS_REDIS_URL"
	EnvJWTSecret    = "GTCLICKS_JWT_SECRET"
	EnvJWTIssuer    = "GTCLICKS_JWT_ISSUER"
	EnvUseSQLite    = "GTCLICKS_USE_SQLITE"
	EnvAsaasAPIKey  = "GTCLICKS_ASAAS_API_KEY"
	EnvAsaasSandbox = "GTCLICKS_ASAAS_SANDBOX"
	EnvCronInterval = "GTCLICKS_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
