package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TACKLESHOP"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "TACKLESHOP_APP_ENV"
	EnvDBDSN  = "TACKLESHOP_DB_DSN"
	EnvDBHost = "TACKLESHOP_DB_HOST"
	EnvDBUser = "TACKLESHOP_DB_USER"
	EnvDBName = "TACKLESHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	Cart         CartConfig
	Promo        PromoConfig
	Notify       NotifyConfig
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
	Env          string `envconfig:"TACKLESHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"TACKLESHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TACKLESHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TACKLESHOP_LOG_WARN_STACK" default:"false"`
	Currency     string `envconfig:"TACKLESHOP_CURRENCY" default:"UAH"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TACKLESHOP_DB_DSN"`
	Driver string `envconfig:"TACKLESHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TACKLESHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"TACKLESHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TACKLESHOP_DB_USER"`
	LegacyPassword string `envconfig:"TACKLESHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"TACKLESHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"TACKLESHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TACKLESHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TACKLESHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TACKLESHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TACKLESHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TACKLESHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TACKLESHOP_REDIS_ADDR"`
	Password     string        `envconfig:"TACKLESHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"TACKLESHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TACKLESHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TACKLESHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TACKLESHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TACKLESHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TACKLESHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	TTL          time.Duration `envconfig:"TACKLESHOP_SESSION_TTL" default:"720h"`
	CookieName   string        `envconfig:"TACKLESHOP_SESSION_COOKIE" default:"ts_session"`
	CookieSecure bool          `envconfig:"TACKLESHOP_SESSION_COOKIE_SECURE" default:"true"`
}

type CartConfig struct {
	UndoTTL time.Duration `envconfig:"TACKLESHOP_CART_UNDO_TTL" default:"5s"`
	// Carts persist in redis with this TTL; mirrors the storefront session.
	PersistTTL time.Duration `envconfig:"TACKLESHOP_CART_PERSIST_TTL" default:"720h"`
}

type PromoConfig struct {
	RateLimitWindow   time.Duration `envconfig:"TACKLESHOP_PROMO_RATE_LIMIT_WINDOW" default:"5m"`
	RateLimitAttempts int           `envconfig:"TACKLESHOP_PROMO_RATE_LIMIT_ATTEMPTS" default:"10"`
	// Zero disables the ceiling on percentage discounts.
	MaxPercentDiscount string `envconfig:"TACKLESHOP_PROMO_MAX_PERCENT_DISCOUNT" default:"0"`
}

type NotifyConfig struct {
	WebhookURL string        `envconfig:"TACKLESHOP_NOTIFY_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"TACKLESHOP_NOTIFY_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TACKLESHOP_AUTO_MIGRATE" default:"false"`
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
