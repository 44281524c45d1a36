// Package config loads the service configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied by Load.
const (
	EnvSecretKey       = "PAPERTRADE_SECRET_KEY"
	EnvLegacySecretKey = "SECRET_KEY"
	EnvDatabasePath    = "PAPERTRADE_DATABASE_PATH"
	EnvAddr            = "PAPERTRADE_ADDR"
	EnvMarketPlatform  = "PAPERTRADE_MARKET_PLATFORM"
)

// Market data platforms.
const (
	PlatformGemini  = "gemini"
	PlatformBinance = "binance"
	PlatformBybit   = "bybit"
)

const maxHistoryLimit = 500

// Config is built once at startup and passed to every component. Treat it as read-only.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Market   MarketConfig
	Ledger   LedgerConfig
	WAL      WALConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	CORSOrigins       []string
	// TLSDomains enables ACME certificates for the listed hosts.
	TLSDomains  []string
	TLSCacheDir string
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

type MarketConfig struct {
	Platform string
	// BaseURL overrides the platform API endpoint, empty means the public default.
	BaseURL string
	Timeout time.Duration
}

type LedgerConfig struct {
	InitialBalance decimal.Decimal
	HistoryLimit   int
}

type WALConfig struct {
	Enabled bool
	Dir     string
}

type LogConfig struct {
	Level       string
	Development bool
}

// fileConfig mirrors Config in its YAML form.
type fileConfig struct {
	Server struct {
		Addr              string        `yaml:"addr"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
		IdleTimeout       time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins       []string      `yaml:"cors_origins,omitempty"`
		TLSDomains        []string      `yaml:"tls_domains,omitempty"`
		TLSCacheDir       string        `yaml:"tls_cache_dir,omitempty"`
	} `yaml:"server"`
	Auth struct {
		Secret   string        `yaml:"secret"`
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Database struct {
		Path        string        `yaml:"path"`
		BusyTimeout time.Duration `yaml:"busy_timeout"`
	} `yaml:"database"`
	Market struct {
		Platform string        `yaml:"platform"`
		BaseURL  string        `yaml:"base_url,omitempty"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"market"`
	Ledger struct {
		InitialBalance string `yaml:"initial_balance"`
		HistoryLimit   int    `yaml:"history_limit"`
	} `yaml:"ledger"`
	WAL struct {
		Enabled *bool  `yaml:"enabled,omitempty"`
		Dir     string `yaml:"dir"`
	} `yaml:"wal"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
// The auth secret is left empty and must be supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			CORSOrigins:       []string{"*"},
			TLSCacheDir:       "cert-cache",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Path:        "trading.db",
			BusyTimeout: 5 * time.Second,
		},
		Market: MarketConfig{
			Platform: PlatformGemini,
			Timeout:  10 * time.Second,
		},
		Ledger: LedgerConfig{
			InitialBalance: decimal.NewFromInt(10000),
			HistoryLimit:   50,
		},
		WAL: WALConfig{
			Enabled: true,
			Dir:     "./wal/balance",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		cfg, err = LoadFromFile(path)
		if err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromFile parses a YAML file. Keys missing from the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}
	return parse(payload)
}

func parse(payload []byte) (Config, error) {
	raw := toFile(Default())
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return Config{}, errors.Wrap(err, "parse yaml config")
	}

	return fromFile(raw)
}

// SaveToFile writes the configuration as YAML.
func (c Config) SaveToFile(path string) error {
	payload, err := yaml.Marshal(toFile(c))
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return fmt.Errorf("auth.secret is required (set it in the config file or %s)", EnvSecretKey)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		return errors.New("database.busy_timeout must not be negative")
	}
	switch c.Market.Platform {
	case PlatformGemini, PlatformBinance, PlatformBybit:
	default:
		return fmt.Errorf("unsupported market.platform %q", c.Market.Platform)
	}
	if c.Market.Timeout <= 0 {
		return errors.New("market.timeout must be positive")
	}
	if c.Ledger.InitialBalance.IsNegative() {
		return fmt.Errorf("ledger.initial_balance must not be negative, got %s", c.Ledger.InitialBalance.String())
	}
	if c.Ledger.HistoryLimit < 1 || c.Ledger.HistoryLimit > maxHistoryLimit {
		return fmt.Errorf("ledger.history_limit must be between 1 and %d", maxHistoryLimit)
	}
	if c.WAL.Enabled && c.WAL.Dir == "" {
		return errors.New("wal.dir is required when wal is enabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log.level %q", c.Log.Level)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvSecretKey); v != "" {
		c.Auth.Secret = v
	} else if v := getenv(EnvLegacySecretKey); v != "" {
		c.Auth.Secret = v
	}
	if v := getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvMarketPlatform); v != "" {
		c.Market.Platform = strings.ToLower(v)
	}
}

func fromFile(raw fileConfig) (Config, error) {
	balance, err := decimal.NewFromString(raw.Ledger.InitialBalance)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'initial_balance' param in yaml config (must be a decimal), error: %w", err)
	}

	walEnabled := true
	if raw.WAL.Enabled != nil {
		walEnabled = *raw.WAL.Enabled
	}

	return Config{
		Server: ServerConfig{
			Addr:              raw.Server.Addr,
			ReadHeaderTimeout: raw.Server.ReadHeaderTimeout,
			IdleTimeout:       raw.Server.IdleTimeout,
			ShutdownTimeout:   raw.Server.ShutdownTimeout,
			CORSOrigins:       raw.Server.CORSOrigins,
			TLSDomains:        raw.Server.TLSDomains,
			TLSCacheDir:       raw.Server.TLSCacheDir,
		},
		Auth: AuthConfig{
			Secret:   raw.Auth.Secret,
			TokenTTL: raw.Auth.TokenTTL,
		},
		Database: DatabaseConfig{
			Path:        raw.Database.Path,
			BusyTimeout: raw.Database.BusyTimeout,
		},
		Market: MarketConfig{
			Platform: strings.ToLower(raw.Market.Platform),
			BaseURL:  raw.Market.BaseURL,
			Timeout:  raw.Market.Timeout,
		},
		Ledger: LedgerConfig{
			InitialBalance: balance,
			HistoryLimit:   raw.Ledger.HistoryLimit,
		},
		WAL: WALConfig{
			Enabled: walEnabled,
			Dir:     raw.WAL.Dir,
		},
		Log: LogConfig{
			Level:       raw.Log.Level,
			Development: raw.Log.Development,
		},
	}, nil
}

func toFile(c Config) fileConfig {
	var raw fileConfig
	raw.Server.Addr = c.Server.Addr
	raw.Server.ReadHeaderTimeout = c.Server.ReadHeaderTimeout
	raw.Server.IdleTimeout = c.Server.IdleTimeout
	raw.Server.ShutdownTimeout = c.Server.ShutdownTimeout
	raw.Server.CORSOrigins = c.Server.CORSOrigins
	raw.Server.TLSDomains = c.Server.TLSDomains
	raw.Server.TLSCacheDir = c.Server.TLSCacheDir
	raw.Auth.Secret = c.Auth.Secret
	raw.Auth.TokenTTL = c.Auth.TokenTTL
	raw.Database.Path = c.Database.Path
	raw.Database.BusyTimeout = c.Database.BusyTimeout
	raw.Market.Platform = c.Market.Platform
	raw.Market.BaseURL = c.Market.BaseURL
	raw.Market.Timeout = c.Market.Timeout
	raw.Ledger.InitialBalance = c.Ledger.InitialBalance.String()
	raw.Ledger.HistoryLimit = c.Ledger.HistoryLimit
	walEnabled := c.WAL.Enabled
	raw.WAL.Enabled = &walEnabled
	raw.WAL.Dir = c.WAL.Dir
	raw.Log.Level = c.Log.Level
	raw.Log.Development = c.Log.Development
	return raw
}
