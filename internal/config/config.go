package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "satoshi"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = time.Hour
	defaultLockTTL        = 30 * time.Second
	defaultPlaidEnv       = "sandbox"
	defaultAssetID        = "bitcoin"
	defaultFiat           = "usd"
	defaultNodeNetwork    = "regtest"
	defaultTreasury       = "treasury"
	defaultWalletPrefix   = "wallet_"
	defaultFeeRate        = "0.00001"
	defaultLoginPerMinute = 5

	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret      string
	AccessTokenTTL time.Duration
	LoginPerMinute int

	Plaid PlaidConfig
	Rates RatesConfig
	Node  NodeConfig

	WalletPrefix string
	LockTTL      time.Duration
}

// PlaidConfig holds the bank-aggregation credentials.
type PlaidConfig struct {
	ClientID   string
	Secret     string
	Env        string
	ClientName string
	BaseURL    string
}

// Enabled reports whether Plaid credentials are present.
func (p PlaidConfig) Enabled() bool {
	return p.ClientID != "" && p.Secret != ""
}

// RatesConfig points at the exchange-rate feed.
type RatesConfig struct {
	FeedURL string
	AssetID string
	Fiat    string
}

// NodeConfig holds the bitcoin node RPC settings.
type NodeConfig struct {
	Host           string
	User           string
	Pass           string
	CookiePath     string
	Network        string
	TreasuryWallet string
	FeeRate        decimal.Decimal
}

// Enabled reports whether a node endpoint is configured.
func (n NodeConfig) Enabled() bool {
	return n.Host != ""
}

// IsDevelopment reports whether the service runs with local fallbacks.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// Load reads an optional .env file, then configuration values from the
// environment, and populates a Config instance.
func Load() (Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Plaid: PlaidConfig{
			ClientID:   os.Getenv("PLAID_CLIENT_ID"),
			Secret:     os.Getenv("PLAID_SECRET"),
			Env:        strings.ToLower(getEnv("PLAID_ENV", defaultPlaidEnv)),
			ClientName: getEnv("PLAID_CLIENT_NAME", "Satoshi Wallet"),
			BaseURL:    os.Getenv("PLAID_BASE_URL"),
		},
		Rates: RatesConfig{
			FeedURL: os.Getenv("RATE_FEED_URL"),
			AssetID: getEnv("RATE_ASSET_ID", defaultAssetID),
			Fiat:    strings.ToLower(getEnv("RATE_FIAT", defaultFiat)),
		},
		Node: NodeConfig{
			Host:           os.Getenv("NODE_HOST"),
			User:           os.Getenv("NODE_USER"),
			Pass:           os.Getenv("NODE_PASS"),
			CookiePath:     os.Getenv("NODE_COOKIE_PATH"),
			Network:        strings.ToLower(getEnv("NODE_NETWORK", defaultNodeNetwork)),
			TreasuryWallet: getEnv("NODE_TREASURY_WALLET", defaultTreasury),
		},
		WalletPrefix: getEnv("WALLET_PREFIX", defaultWalletPrefix),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("", "ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTTL, err = durationFromEnv("", "LOCK_TTL", defaultLockTTL); err != nil {
		return Config{}, err
	}

	cfg.LoginPerMinute = defaultLoginPerMinute
	if v := os.Getenv("LOGIN_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE_PER_MINUTE: %q", v)
		}
		cfg.LoginPerMinute = n
	}

	cfg.Node.FeeRate, err = decimal.NewFromString(getEnv("NODE_FEE_RATE", defaultFeeRate))
	if err != nil || !cfg.Node.FeeRate.IsPositive() {
		return Config{}, fmt.Errorf("invalid NODE_FEE_RATE: must be a positive decimal")
	}

	if cfg.Node.Enabled() && (cfg.Node.User == "" || cfg.Node.Pass == "") && cfg.Node.CookiePath == "" {
		return Config{}, fmt.Errorf("NODE_HOST requires NODE_USER and NODE_PASS or NODE_COOKIE_PATH")
	}

	if cfg.IsDevelopment() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "dev-secret-change-me"
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if !cfg.Plaid.Enabled() {
		return Config{}, fmt.Errorf("PLAID_CLIENT_ID and PLAID_SECRET must be set")
	}
	if !cfg.Node.Enabled() {
		return Config{}, fmt.Errorf("NODE_HOST must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv prefers an integer seconds variable, then a Go duration string.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
