package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TRADECART"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "TRADECART_APP_ENV"
	EnvDBDSN  = "TRADECART_DB_DSN"
	EnvDBHost = "TRADECART_DB_HOST"
	EnvDBUser = "TRADECART_DB_USER"
	EnvDBName = "TRADECART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Checkout CheckoutConfig
	Stats    StatsConfig
	Webhook  WebhookConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig

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
	Env          string `envconfig:"TRADECART_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADECART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRADECART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADECART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADECART_DB_DSN"`
	Driver string `envconfig:"TRADECART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADECART_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADECART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADECART_DB_USER"`
	LegacyPassword string `envconfig:"TRADECART_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADECART_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADECART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADECART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADECART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADECART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADECART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADECART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADECART_REDIS_ADDR"`
	Password     string        `envconfig:"TRADECART_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADECART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADECART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADECART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADECART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADECART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADECART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADECART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADECART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADECART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PasswordConfig tunes Argon2id hashing. Defaults follow the OWASP baseline.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TRADECART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRADECART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRADECART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRADECART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRADECART_ARGON_KEY_LEN" default:"32"`
}

// CheckoutConfig bounds the order placement transaction so lock contention
// fails fast instead of hanging.
type CheckoutConfig struct {
	LockWaitBudget time.Duration `envconfig:"TRADECART_CHECKOUT_LOCK_WAIT_BUDGET" default:"10s"`
	TxBudget       time.Duration `envconfig:"TRADECART_CHECKOUT_TX_BUDGET" default:"20s"`
}

type StatsConfig struct {
	TTL time.Duration `envconfig:"TRADECART_STATS_CACHE_TTL" default:"5m"`
}

type WebhookConfig struct {
	IdempotencyTTL  time.Duration `envconfig:"TRADECART_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	RateLimitWindow time.Duration `envconfig:"TRADECART_WEBHOOK_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitMax    int           `envconfig:"TRADECART_WEBHOOK_RATE_LIMIT_MAX" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADECART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TRADECART_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"TRADECART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"TRADECART_PUBSUB_ORDERS_TOPIC" default:"tc-order-events"`
	OrdersSubscription string `envconfig:"TRADECART_PUBSUB_ORDERS_SUBSCRIPTION" default:"tc-order-events-sub"`
	PricingTopic       string `envconfig:"TRADECART_PUBSUB_PRICING_TOPIC" default:"tc-pricing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRADECART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRADECART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRADECART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
