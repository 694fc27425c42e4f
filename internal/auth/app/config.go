package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Keys         KeysConfig         `mapstructure:"keys"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Lockout      LockoutConfig      `mapstructure:"lockout"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Seed         SeedConfig         `mapstructure:"seed"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadHeaderTimeout   time.Duration `mapstructure:"read_header_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

type AuthConfig struct {
	Issuer           string        `mapstructure:"issuer"`
	Audience         string        `mapstructure:"audience"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	IdentityTokenTTL time.Duration `mapstructure:"identity_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
}

type KeysConfig struct {
	Algorithm     string        `mapstructure:"algorithm"`    // RS256, ES256, EdDSA
	StorageMode   string        `mapstructure:"storage_mode"` // ephemeral, persistent
	RSABits       int           `mapstructure:"rsa_bits"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	MaxPrevious   int           `mapstructure:"max_previous"`
	MasterKeyPath string        `mapstructure:"master_key_path"`
}

type DatabaseConfig struct {
	File       string `mapstructure:"file"`
	PepperFile string `mapstructure:"pepper_file"`
}

type LockoutConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Window      time.Duration `mapstructure:"window"`
	RedisURL    string        `mapstructure:"redis_url"` // empty: in-process counter
}

type AuditConfig struct {
	NATSURL       string `mapstructure:"nats_url"` // empty: log only
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type SeedConfig struct {
	File string `mapstructure:"file"`
}

type HousekeepingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type RateLimitConfig struct {
	TokenRequests int           `mapstructure:"token_requests"`
	TokenWindow   time.Duration `mapstructure:"token_window"`
	TokenBurst    int           `mapstructure:"token_burst"`
	AdminRequests int           `mapstructure:"admin_requests"`
	AdminWindow   time.Duration `mapstructure:"admin_window"`
	AdminBurst    int           `mapstructure:"admin_burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Env    string `mapstructure:"env"`
}

const (
	StorageEphemeral  = "ephemeral"
	StoragePersistent = "persistent"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", "3s")
	v.SetDefault("server.shutdown_grace_period", "10s")

	v.SetDefault("auth.issuer", "http://localhost:8080/")
	v.SetDefault("auth.audience", "resource_server")
	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.identity_token_ttl", "20m")
	v.SetDefault("auth.refresh_token_ttl", "336h")
	v.SetDefault("auth.store_timeout", "2s")

	v.SetDefault("keys.algorithm", "EdDSA")
	v.SetDefault("keys.storage_mode", StorageEphemeral)
	v.SetDefault("keys.rsa_bits", 2048)
	v.SetDefault("keys.grace_period", "720h")
	v.SetDefault("keys.max_previous", 2)
	v.SetDefault("keys.master_key_path", "")

	v.SetDefault("database.file", "auth.db")
	v.SetDefault("database.pepper_file", "pepper")

	v.SetDefault("lockout.max_failures", 5)
	v.SetDefault("lockout.window", "15m")
	v.SetDefault("lockout.redis_url", "")

	v.SetDefault("audit.nats_url", "")
	v.SetDefault("audit.subject_prefix", "auth.events")

	v.SetDefault("seed.file", "")
	v.SetDefault("housekeeping.interval", "1h")

	v.SetDefault("rate_limit.token_requests", 30)
	v.SetDefault("rate_limit.token_window", "1m")
	v.SetDefault("rate_limit.token_burst", 10)
	v.SetDefault("rate_limit.admin_requests", 60)
	v.SetDefault("rate_limit.admin_window", "1m")
	v.SetDefault("rate_limit.admin_burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.env", "dev")
}

// LoadConfig reads defaults, then the YAML file at configPath (or
// config.yaml in the working directory or /etc/aixasz/auth), then AUTH_*
// environment variables, e.g. AUTH_KEYS_STORAGE_MODE.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/aixasz/auth")
	}

	v.SetEnvPrefix("AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if u, err := url.Parse(c.Auth.Issuer); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("auth.issuer %q must be an absolute URL", c.Auth.Issuer))
	}
	if c.Auth.Audience == "" {
		errs = append(errs, errors.New("auth.audience is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.IdentityTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	switch c.Keys.Algorithm {
	case "EdDSA", "ES256", "RS256":
	default:
		errs = append(errs, fmt.Errorf("keys.algorithm %q is not one of EdDSA, ES256, RS256", c.Keys.Algorithm))
	}
	switch c.Keys.StorageMode {
	case StorageEphemeral:
	case StoragePersistent:
		if c.Keys.MasterKeyPath == "" {
			errs = append(errs, errors.New("keys.master_key_path is required in persistent mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("keys.storage_mode %q is not ephemeral or persistent", c.Keys.StorageMode))
	}
	if c.Lockout.MaxFailures <= 0 || c.Lockout.Window <= 0 {
		errs = append(errs, errors.New("lockout.max_failures and lockout.window must be positive"))
	}
	return errors.Join(errs...)
}
