package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	GatewayProviderPayDunya = "paydunya"
	GatewayProviderSquare   = "square"

	GatewayModeTest = "test"
	GatewayModeLive = "live"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Gateway       GatewayConfig
	Square        SquareConfig
	Wave          WaveConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string        `envconfig:"MAILLOT_APP_ENV" required:"true"`
	Port         string        `envconfig:"MAILLOT_APP_PORT" required:"true"`
	LogLevel     string        `envconfig:"MAILLOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool          `envconfig:"MAILLOT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string      `envconfig:"MAILLOT_CORS_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout  time.Duration `envconfig:"MAILLOT_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"MAILLOT_HTTP_WRITE_TIMEOUT" default:"30s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"MAILLOT_DB_DSN"`
	Driver string `envconfig:"MAILLOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MAILLOT_DB_HOST"`
	LegacyPort     int    `envconfig:"MAILLOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MAILLOT_DB_USER"`
	LegacyPassword string `envconfig:"MAILLOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"MAILLOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"MAILLOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAILLOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAILLOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAILLOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAILLOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the embedded driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"MAILLOT_REDIS_URL"`
	Address      string        `envconfig:"MAILLOT_REDIS_ADDR"`
	Password     string        `envconfig:"MAILLOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAILLOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAILLOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAILLOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAILLOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAILLOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAILLOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MAILLOT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MAILLOT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MAILLOT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MAILLOT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MAILLOT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MAILLOT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MAILLOT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MAILLOT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"MAILLOT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"MAILLOT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"MAILLOT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MAILLOT_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	ShippingCost decimal.Decimal `envconfig:"MAILLOT_CHECKOUT_SHIPPING_COST" default:"1000"`
	Currency     string          `envconfig:"MAILLOT_CHECKOUT_CURRENCY" default:"XOF"`
	OrderPrefix  string          `envconfig:"MAILLOT_CHECKOUT_ORDER_PREFIX" default:"CMD"`
}

type GatewayConfig struct {
	Provider      string        `envconfig:"MAILLOT_GATEWAY_PROVIDER" default:"paydunya"`
	Mode          string        `envconfig:"MAILLOT_GATEWAY_MODE" default:"test"`
	Timeout       time.Duration `envconfig:"MAILLOT_GATEWAY_TIMEOUT" default:"15s"`
	BaseURL       string        `envconfig:"MAILLOT_PAYDUNYA_BASE_URL" default:"https://app.paydunya.com"`
	MasterKey     string        `envconfig:"MAILLOT_PAYDUNYA_MASTER_KEY"`
	PrivateKey    string        `envconfig:"MAILLOT_PAYDUNYA_PRIVATE_KEY"`
	PublicKey     string        `envconfig:"MAILLOT_PAYDUNYA_PUBLIC_KEY"`
	Token         string        `envconfig:"MAILLOT_PAYDUNYA_TOKEN"`
	StoreName     string        `envconfig:"MAILLOT_PAYDUNYA_STORE_NAME" default:"Maillots"`
	CallbackURL   string        `envconfig:"MAILLOT_GATEWAY_CALLBACK_URL"`
	ReturnURL     string        `envconfig:"MAILLOT_GATEWAY_RETURN_URL"`
	CancelURL     string        `envconfig:"MAILLOT_GATEWAY_CANCEL_URL"`
	WebhookSecret string        `envconfig:"MAILLOT_GATEWAY_WEBHOOK_SECRET"`
}

// IsTestMode reports whether gateway calls are simulated.
func (g GatewayConfig) IsTestMode() bool {
	mode := strings.TrimSpace(strings.ToLower(g.Mode))
	return mode == "" || mode == GatewayModeTest
}

// NormalizedProvider returns the lowercase provider name, defaulting to paydunya.
func (g GatewayConfig) NormalizedProvider() string {
	provider := strings.TrimSpace(strings.ToLower(g.Provider))
	if provider == "" {
		return GatewayProviderPayDunya
	}
	return provider
}

type SquareConfig struct {
	AccessToken   string `envconfig:"MAILLOT_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"MAILLOT_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"MAILLOT_SQUARE_LOCATION_ID"`
	WebhookSecret string `envconfig:"MAILLOT_SQUARE_WEBHOOK_SECRET"`
	WebhookURL    string `envconfig:"MAILLOT_SQUARE_WEBHOOK_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type WaveConfig struct {
	MerchantPhone string `envconfig:"MAILLOT_WAVE_MERCHANT_PHONE" default:"+225 07 00 00 00 00"`
	MerchantName  string `envconfig:"MAILLOT_WAVE_MERCHANT_NAME" default:"Maillots"`
}

func (c *Config) validate() error {
	var errs error
	if c.Redis.URL == "" && c.Redis.Address == "" {
		errs = multierr.Append(errs, errors.New("redis url or address is required"))
	}
	if c.Checkout.ShippingCost.IsNegative() {
		errs = multierr.Append(errs, errors.New("shipping cost must not be negative"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("gateway timeout must be positive"))
	}

	switch c.Gateway.NormalizedProvider() {
	case GatewayProviderPayDunya:
		if !c.Gateway.IsTestMode() {
			for env, value := range map[string]string{
				EnvGatewayMasterKey:  c.Gateway.MasterKey,
				EnvGatewayPrivateKey: c.Gateway.PrivateKey,
				EnvGatewayToken:      c.Gateway.Token,
			} {
				if strings.TrimSpace(value) == "" {
					errs = multierr.Append(errs, fmt.Errorf("%s is required in live mode", env))
				}
			}
		}
	case GatewayProviderSquare:
		if strings.TrimSpace(c.Square.AccessToken) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the square provider", EnvSquareAccessToken))
		}
		if strings.TrimSpace(c.Square.LocationID) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the square provider", EnvSquareLocationID))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unsupported gateway provider %q", c.Gateway.Provider))
	}
	return errs
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:maillot.db?cache=shared"
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
