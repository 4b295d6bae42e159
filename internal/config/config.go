// Package config defines the top-level configuration for the fund daemon
// and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FUNDD_* environment
// variables.
type Config struct {
	Fund     FundConfig     `toml:"fund"`
	Operator OperatorConfig `toml:"operator"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Keeper   KeeperConfig   `toml:"keeper"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// FundConfig holds the engine parameters of the hosted fund.
type FundConfig struct {
	Name                  string        `toml:"name"`
	Symbol                string        `toml:"symbol"`
	FeeRecipient          string        `toml:"fee_recipient"`
	ManagementFeeBps      int64         `toml:"management_fee_bps"`
	PerformanceFeeBps     int64         `toml:"performance_fee_bps"`
	RebalanceThresholdBps int64         `toml:"rebalance_threshold_bps"`
	MinDeposit            string        `toml:"min_deposit"` // base-currency wei, decimal string
	MaxSlippageBps        int64         `toml:"max_slippage_bps"`
	SwapDeadline          duration      `toml:"swap_deadline"`
	Exchange              string        `toml:"exchange"` // "simulated" or "none"
	Assets                []AssetConfig `toml:"assets"`
}

// AssetConfig declares an asset registered at startup.
type AssetConfig struct {
	Token        string `toml:"token"`
	PriceFeed    string `toml:"price_feed"`
	TargetWeight int64  `toml:"target_weight_bps"`
	MinWeight    int64  `toml:"min_weight_bps"`
	MaxWeight    int64  `toml:"max_weight_bps"`
}

// MinDepositWei parses the configured minimum deposit, defaulting to zero.
func (f FundConfig) MinDepositWei() (*big.Int, error) {
	if strings.TrimSpace(f.MinDeposit) == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(f.MinDeposit, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid min_deposit %q", f.MinDeposit)
	}
	return v, nil
}

// OperatorConfig holds the operator's key material. The operator address
// is derived from the key and authenticates privileged API calls.
type OperatorConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	Address          string `toml:"address"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint             string `toml:"endpoint"`
	Region               string `toml:"region"`
	Bucket               string `toml:"bucket"`
	AccessKey            string `toml:"access_key"`
	SecretKey            string `toml:"secret_key"`
	UseSSL               bool   `toml:"use_ssl"`
	ForcePathStyle       bool   `toml:"force_path_style"`
	ArchiveRetentionDays int    `toml:"archive_retention_days"`
}

// KeeperConfig holds the fee/rebalance keeper loop parameters.
type KeeperConfig struct {
	Interval duration `toml:"interval"`
	LockTTL  duration `toml:"lock_ttl"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// RateLimit caps deposit/withdraw requests per client IP per
	// rate_limit_window. Zero disables rate limiting.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`

	// AuthMaxSkew bounds the accepted clock drift of signed operator
	// requests.
	AuthMaxSkew duration `toml:"auth_max_skew"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Fund: FundConfig{
			Name:                  "Alpha Vault",
			Symbol:                "AVLT",
			ManagementFeeBps:      200,
			PerformanceFeeBps:     2000,
			RebalanceThresholdBps: 500,
			MinDeposit:            "0",
			MaxSlippageBps:        100,
			SwapDeadline:          duration{time.Minute},
			Exchange:              "simulated",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:             "http://localhost:9000",
			Region:               "us-east-1",
			Bucket:               "fundd-data",
			UseSSL:               false,
			ForcePathStyle:       true,
			ArchiveRetentionDays: 90,
		},
		Keeper: KeeperConfig{
			Interval: duration{5 * time.Minute},
			LockTTL:  duration{2 * time.Minute},
		},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       60,
			RateLimitWindow: duration{time.Minute},
			AuthMaxSkew:     duration{5 * time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"deposit", "withdraw", "rebalance", "fee", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"keeper": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, keeper, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Fund
	if c.Fund.Name == "" {
		errs = append(errs, "fund: name must not be empty")
	}
	if c.Fund.Symbol == "" {
		errs = append(errs, "fund: symbol must not be empty")
	}
	if c.Fund.FeeRecipient == "" {
		errs = append(errs, "fund: fee_recipient must not be empty")
	} else if !common.IsHexAddress(c.Fund.FeeRecipient) {
		errs = append(errs, fmt.Sprintf("fund: fee_recipient %q is not a hex address", c.Fund.FeeRecipient))
	}
	if c.Fund.ManagementFeeBps < 0 || c.Fund.ManagementFeeBps > 10000 {
		errs = append(errs, fmt.Sprintf("fund: management_fee_bps must be 0-10000, got %d", c.Fund.ManagementFeeBps))
	}
	if c.Fund.PerformanceFeeBps < 0 || c.Fund.PerformanceFeeBps > 10000 {
		errs = append(errs, fmt.Sprintf("fund: performance_fee_bps must be 0-10000, got %d", c.Fund.PerformanceFeeBps))
	}
	if c.Fund.RebalanceThresholdBps < 0 || c.Fund.RebalanceThresholdBps > 10000 {
		errs = append(errs, fmt.Sprintf("fund: rebalance_threshold_bps must be 0-10000, got %d", c.Fund.RebalanceThresholdBps))
	}
	if c.Fund.MaxSlippageBps < 0 || c.Fund.MaxSlippageBps >= 10000 {
		errs = append(errs, fmt.Sprintf("fund: max_slippage_bps must be 0-9999, got %d", c.Fund.MaxSlippageBps))
	}
	if _, err := c.Fund.MinDepositWei(); err != nil {
		errs = append(errs, fmt.Sprintf("fund: min_deposit %q is not a decimal integer", c.Fund.MinDeposit))
	}
	if c.Fund.Exchange != "simulated" && c.Fund.Exchange != "none" {
		errs = append(errs, fmt.Sprintf("fund: exchange must be \"simulated\" or \"none\", got %q", c.Fund.Exchange))
	}
	for i, a := range c.Fund.Assets {
		if !common.IsHexAddress(a.Token) {
			errs = append(errs, fmt.Sprintf("fund: assets[%d]: token %q is not a hex address", i, a.Token))
		}
		if !common.IsHexAddress(a.PriceFeed) {
			errs = append(errs, fmt.Sprintf("fund: assets[%d]: price_feed %q is not a hex address", i, a.PriceFeed))
		}
	}

	// Operator: at least one key source must be specified.
	if c.Operator.PrivateKey == "" && c.Operator.EncryptedKeyPath == "" {
		errs = append(errs, "operator: either private_key or encrypted_key_path must be set")
	}
	if c.Operator.EncryptedKeyPath != "" && c.Operator.KeyPassword == "" {
		errs = append(errs, "operator: key_password is required when encrypted_key_path is set")
	}
	if c.Operator.Address != "" && !common.IsHexAddress(c.Operator.Address) {
		errs = append(errs, fmt.Sprintf("operator: address %q is not a hex address", c.Operator.Address))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Keeper
	if c.Mode == "keeper" || c.Mode == "full" {
		if c.Keeper.Interval.Duration <= 0 {
			errs = append(errs, "keeper: interval must be positive")
		}
		if c.Keeper.LockTTL.Duration <= 0 {
			errs = append(errs, "keeper: lock_ttl must be positive")
		}
	}

	// Server
	if c.Mode == "server" || c.Mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
