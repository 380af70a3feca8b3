package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Screen   ScreenConfig   `mapstructure:"screen"`
	Geo      GeoConfig      `mapstructure:"geo"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	Mode           string     `mapstructure:"mode"`
	TrustedProxies []string   `mapstructure:"trusted_proxies"`
	CORS           CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DispatchConfig controls link issuance and redirect targets.
type DispatchConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	IdentifierPrefix   string `mapstructure:"identifier_prefix"`
	IdentifierAttempts int    `mapstructure:"identifier_attempts"`
	StoreRetries       int    `mapstructure:"store_retries"`
}

// ScreenConfig holds the fraud screen policy knobs.
type ScreenConfig struct {
	// IPScope is "project" or "global".
	IPScope                  string `mapstructure:"ip_scope"`
	UnknownCountryIsMismatch bool   `mapstructure:"unknown_country_is_mismatch"`
}

// GeoConfig configures the IP to country lookup.
type GeoConfig struct {
	Provider string        `mapstructure:"provider"` // ipapi, ipinfo, none
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig configures the object storage used for report exports.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

// LogConfig configures process logging. File enables a size-rotated log file.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	FileOnly   bool   `mapstructure:"file_only"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("dispatch.base_url", "APP_BASE_URL")
	v.BindEnv("geo.token", "GEO_API_TOKEN")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/panelgate.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "panelgate")
	v.SetDefault("database.name", "panelgate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("dispatch.base_url", "http://localhost:3000")
	v.SetDefault("dispatch.identifier_prefix", "ADR-")
	v.SetDefault("dispatch.identifier_attempts", 5)
	v.SetDefault("dispatch.store_retries", 3)

	v.SetDefault("screen.ip_scope", IPScopeProject)
	v.SetDefault("screen.unknown_country_is_mismatch", true)

	v.SetDefault("geo.provider", "ipapi")
	v.SetDefault("geo.base_url", "https://ipapi.co")
	v.SetDefault("geo.timeout", 2*time.Second)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "panel-reports")
	v.SetDefault("storage.prefix", "reports")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_only", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
}

const (
	IPScopeProject = "project"
	IPScopeGlobal  = "global"
)

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	switch c.Screen.IPScope {
	case IPScopeProject, IPScopeGlobal:
	default:
		return fmt.Errorf("screen.ip_scope: unsupported value %q", c.Screen.IPScope)
	}
	if c.Dispatch.BaseURL == "" {
		return fmt.Errorf("dispatch.base_url is required")
	}
	if c.Dispatch.IdentifierAttempts < 1 {
		return fmt.Errorf("dispatch.identifier_attempts must be positive")
	}
	if c.Dispatch.StoreRetries < 0 {
		return fmt.Errorf("dispatch.store_retries must not be negative")
	}
	if c.Geo.Timeout <= 0 {
		return fmt.Errorf("geo.timeout must be positive")
	}
	return nil
}
