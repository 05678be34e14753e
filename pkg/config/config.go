package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the service.
	EnvPrefix = "SAUDA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SAUDA_DB_DSN"
	EnvDBHost = "SAUDA_DB_HOST"
	EnvDBUser = "SAUDA_DB_USER"
	EnvDBName = "SAUDA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	Payment      PaymentConfig
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
	Env          string `envconfig:"SAUDA_APP_ENV" required:"true"`
	Port         string `envconfig:"SAUDA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SAUDA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAUDA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SAUDA_DB_DSN"`
	Driver string `envconfig:"SAUDA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SAUDA_DB_HOST"`
	LegacyPort     int    `envconfig:"SAUDA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SAUDA_DB_USER"`
	LegacyPassword string `envconfig:"SAUDA_DB_PASSWORD"`
	LegacyName     string `envconfig:"SAUDA_DB_NAME"`
	LegacySSLMode  string `envconfig:"SAUDA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAUDA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAUDA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAUDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAUDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAUDA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SAUDA_REDIS_ADDR"`
	Password     string        `envconfig:"SAUDA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAUDA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAUDA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAUDA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAUDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAUDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAUDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries what is needed to *parse* access tokens issued by the
// identity collaborator. Token issuance lives outside this service.
type JWTConfig struct {
	Secret string `envconfig:"SAUDA_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SAUDA_JWT_ISSUER" required:"true"`
}

type CartConfig struct {
	AnonymousTTL time.Duration `envconfig:"SAUDA_CART_ANONYMOUS_TTL" default:"720h"`
}

type PaymentConfig struct {
	// Secret is the shared HMAC key agreed with the payment gateway.
	Secret         string        `envconfig:"SAUDA_PAYMENT_SECRET" required:"true"`
	GatewayURL     string        `envconfig:"SAUDA_PAYMENT_GATEWAY_URL" required:"true"`
	SuccessURL     string        `envconfig:"SAUDA_PAYMENT_SUCCESS_URL"`
	FailURL        string        `envconfig:"SAUDA_PAYMENT_FAIL_URL"`
	CallbackURL    string        `envconfig:"SAUDA_PAYMENT_CALLBACK_URL"`
	IdempotencyTTL time.Duration `envconfig:"SAUDA_PAYMENT_IDEMPOTENCY_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SAUDA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SAUDA_AUTO_MIGRATE" default:"false"`
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
