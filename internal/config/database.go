package config

import (
	"fmt"
	"net/url"
	"time"
)

// DatabaseConfig selects the store driver and its connection settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, sqlite

	// URL takes precedence over the discrete postgres fields when set.
	URL      string `mapstructure:"url"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN returns the driver specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	default:
		// busy_timeout keeps concurrent dispatch writers waiting instead of failing fast
		q := url.Values{}
		q.Add("_busy_timeout", "5000")
		q.Add("_journal_mode", "WAL")
		return fmt.Sprintf("file:%s?%s", c.Path, q.Encode())
	}
}
