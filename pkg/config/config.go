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
	Storage      StorageConfig
	Cache        CacheConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GYOAN_APP_ENV" required:"true"`
	Port         string `envconfig:"GYOAN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GYOAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GYOAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GYOAN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GYOAN_DB_DSN"`
	Driver string `envconfig:"GYOAN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GYOAN_DB_HOST"`
	LegacyPort     int    `envconfig:"GYOAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GYOAN_DB_USER"`
	LegacyPassword string `envconfig:"GYOAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"GYOAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"GYOAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GYOAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GYOAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GYOAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GYOAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GYOAN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GYOAN_REDIS_ADDR"`
	Password     string        `envconfig:"GYOAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"GYOAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GYOAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GYOAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GYOAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GYOAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GYOAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GYOAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GYOAN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GYOAN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type StorageConfig struct {
	RootDir     string `envconfig:"GYOAN_STORAGE_ROOT" default:"./data/uploads"`
	MaxUploadMB int    `envconfig:"GYOAN_MAX_UPLOAD_MB" default:"200"`
}

type CacheConfig struct {
	TTL       time.Duration `envconfig:"GYOAN_CACHE_TTL" default:"10m"`
	Namespace string        `envconfig:"GYOAN_CACHE_NAMESPACE" default:"contents"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GYOAN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GYOAN_AUTO_MIGRATE" default:"false"`
	UseRedis    bool `envconfig:"GYOAN_USE_REDIS_CACHE" default:"true"`
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
