package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "gyoan"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "GYOAN_APP_ENV"
	EnvPort     = "GYOAN_APP_PORT"
	EnvRedisURL = "GYOAN_REDIS_URL"

	EnvJWTSecret  = "GYOAN_JWT_SECRET"
	EnvJWTIssuer  = "GYOAN_JWT_ISSUER"
	EnvJWTExpMins = "GYOAN_JWT_EXPIRATION_MINUTES"

	EnvStorageRoot = "GYOAN_STORAGE_ROOT"
	EnvCacheTTL    = "GYOAN_CACHE_TTL"

	EnvDBDSN  = "GYOAN_DB_DSN"
	EnvDBHost = "GYOAN_DB_HOST"
	EnvDBUser = "GYOAN_DB_USER"
	EnvDBName = "GYOAN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
