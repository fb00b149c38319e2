// Package config loads server settings from defaults, an optional YAML file,
// a .env file and CHITFUND_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // fund.timezone must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// CHITFUND_DATABASE_PATH for database.path.
const EnvPrefix = "CHITFUND"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Fund     FundConfig     `mapstructure:"fund"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Proofs   ProofsConfig   `mapstructure:"proofs"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// FundConfig controls the engine.
type FundConfig struct {
	// Timezone anchors due dates and payment windows.
	Timezone string `mapstructure:"timezone"`
	// ReconcileInterval is how often missing cycles are backfilled. Zero disables it.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	DefaultCurrency   string        `mapstructure:"default_currency"`
}

type AuditConfig struct {
	Backend      string   `mapstructure:"backend"` // log or kafka
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
	BufferSize   int      `mapstructure:"buffer_size"`
}

type ProofsConfig struct {
	Backend     string `mapstructure:"backend"` // local or s3
	LocalDir    string `mapstructure:"local_dir"`
	MaxBytes    int64  `mapstructure:"max_bytes"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/chitfund.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Fund: FundConfig{
			Timezone:          "UTC",
			ReconcileInterval: time.Hour,
			DefaultCurrency:   "INR",
		},
		Audit: AuditConfig{
			Backend:    "log",
			KafkaTopic: "chitfund.audit",
			BufferSize: 256,
		},
		Proofs: ProofsConfig{
			Backend:  "local",
			LocalDir: "./data/proofs",
			MaxBytes: 10 << 20,
			S3Region: "us-east-1",
		},
	}
}

// Load reads the configuration. configFile may be empty; envFiles are .env
// files to load if they exist (missing files are skipped). Variables already
// present in the environment win over .env values.
func Load(configFile string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("fund.timezone", cfg.Fund.Timezone)
	v.SetDefault("fund.reconcile_interval", cfg.Fund.ReconcileInterval)
	v.SetDefault("fund.default_currency", cfg.Fund.DefaultCurrency)
	v.SetDefault("audit.backend", cfg.Audit.Backend)
	v.SetDefault("audit.kafka_brokers", cfg.Audit.KafkaBrokers)
	v.SetDefault("audit.kafka_topic", cfg.Audit.KafkaTopic)
	v.SetDefault("audit.buffer_size", cfg.Audit.BufferSize)
	v.SetDefault("proofs.backend", cfg.Proofs.Backend)
	v.SetDefault("proofs.local_dir", cfg.Proofs.LocalDir)
	v.SetDefault("proofs.max_bytes", cfg.Proofs.MaxBytes)
	v.SetDefault("proofs.s3_bucket", cfg.Proofs.S3Bucket)
	v.SetDefault("proofs.s3_region", cfg.Proofs.S3Region)
	v.SetDefault("proofs.s3_endpoint", cfg.Proofs.S3Endpoint)
	v.SetDefault("proofs.s3_access_key", cfg.Proofs.S3AccessKey)
	v.SetDefault("proofs.s3_secret_key", cfg.Proofs.S3SecretKey)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("fund.timezone: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	switch c.Audit.Backend {
	case "log":
	case "kafka":
		if len(c.Audit.KafkaBrokers) == 0 {
			return errors.New("audit.kafka_brokers is required for the kafka backend")
		}
	default:
		return fmt.Errorf("audit.backend %q must be log or kafka", c.Audit.Backend)
	}
	switch c.Proofs.Backend {
	case "local":
		if c.Proofs.LocalDir == "" {
			return errors.New("proofs.local_dir is required for the local backend")
		}
	case "s3":
		if c.Proofs.S3Bucket == "" {
			return errors.New("proofs.s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("proofs.backend %q must be local or s3", c.Proofs.Backend)
	}
	return nil
}

// Location returns the fund time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Fund.Timezone)
}
