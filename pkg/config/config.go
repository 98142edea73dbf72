package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MIGRATEMATE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MIGRATEMATE_DB_DSN"
	EnvDBHost = "MIGRATEMATE_DB_HOST"
	EnvDBUser = "MIGRATEMATE_DB_USER"
	EnvDBName = "MIGRATEMATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Analytics    AnalyticsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"MIGRATEMATE_APP_ENV" required:"true"`
	Port         string `envconfig:"MIGRATEMATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MIGRATEMATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MIGRATEMATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MIGRATEMATE_DB_DSN"`
	Driver string `envconfig:"MIGRATEMATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MIGRATEMATE_DB_HOST"`
	LegacyPort     int    `envconfig:"MIGRATEMATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MIGRATEMATE_DB_USER"`
	LegacyPassword string `envconfig:"MIGRATEMATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MIGRATEMATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MIGRATEMATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MIGRATEMATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MIGRATEMATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MIGRATEMATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MIGRATEMATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MIGRATEMATE_REDIS_URL"`
	Address      string        `envconfig:"MIGRATEMATE_REDIS_ADDR"`
	Password     string        `envconfig:"MIGRATEMATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MIGRATEMATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MIGRATEMATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIGRATEMATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MIGRATEMATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MIGRATEMATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MIGRATEMATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MIGRATEMATE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MIGRATEMATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MIGRATEMATE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MIGRATEMATE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MIGRATEMATE_AUTO_MIGRATE" default:"false"`
}

type AnalyticsConfig struct {
	CacheTTL time.Duration `envconfig:"MIGRATEMATE_ANALYTICS_CACHE_TTL" default:"60s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MIGRATEMATE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MIGRATEMATE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MIGRATEMATE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	RetentionTopic        string `envconfig:"MIGRATEMATE_PUBSUB_RETENTION_TOPIC" default:"mm-retention-events"`
	RetentionSubscription string `envconfig:"MIGRATEMATE_PUBSUB_RETENTION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MIGRATEMATE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MIGRATEMATE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MIGRATEMATE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
