package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "paymint"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PAYMINT_DB_DSN"
	EnvDBHost = "PAYMINT_DB_HOST"
	EnvDBUser = "PAYMINT_DB_USER"
	EnvDBName = "PAYMINT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Wallet        WalletConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Wallet.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYMINT_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYMINT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYMINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYMINT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYMINT_DB_DSN"`
	Driver string `envconfig:"PAYMINT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYMINT_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYMINT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYMINT_DB_USER"`
	LegacyPassword string `envconfig:"PAYMINT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYMINT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYMINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYMINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYMINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYMINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYMINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYMINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYMINT_REDIS_ADDR"`
	Password     string        `envconfig:"PAYMINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYMINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYMINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYMINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYMINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYMINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYMINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAYMINT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAYMINT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAYMINT_JWT_EXPIRATION_MINUTES" default:"240"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PAYMINT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PAYMINT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PAYMINT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PAYMINT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PAYMINT_ARGON_KEY_LEN" default:"32"`
}

// WalletConfig holds funds-movement tunables.
type WalletConfig struct {
	// FeeRate is the transfer fee rate as a decimal string, e.g. "0.02" for 2%.
	FeeRate string `envconfig:"PAYMINT_WALLET_FEE_RATE" default:"0.02"`
}

// Rate parses the configured fee rate.
func (w WalletConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(w.FeeRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing wallet fee rate %q: %w", w.FeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("wallet fee rate %q out of range [0,1)", w.FeeRate)
	}
	return rate, nil
}

// AuthRateLimitConfig throttles credential endpoints per IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"PAYMINT_LOGIN_RATE_WINDOW" default:"10m"`
	LoginIPLimit     int           `envconfig:"PAYMINT_LOGIN_RATE_IP_LIMIT" default:"20"`
	LoginEmailLimit  int           `envconfig:"PAYMINT_LOGIN_RATE_EMAIL_LIMIT" default:"5"`
	SignupWindow     time.Duration `envconfig:"PAYMINT_SIGNUP_RATE_WINDOW" default:"1h"`
	SignupIPLimit    int           `envconfig:"PAYMINT_SIGNUP_RATE_IP_LIMIT" default:"10"`
	SignupEmailLimit int           `envconfig:"PAYMINT_SIGNUP_RATE_EMAIL_LIMIT" default:"3"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PAYMINT_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYMINT_AUTO_MIGRATE" default:"false"`
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
