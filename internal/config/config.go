// Package config loads service configuration.
//
// Priority (highest to lowest):
//  1. Environment variables with BARSTOCK_ prefix (e.g. BARSTOCK_DATABASE_URL)
//  2. config.yaml in the working directory or /etc/barstock
//  3. Built-in defaults
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	Orders     OrdersConfig
	Audit      AuditConfig
	Migrations MigrationsConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Env             string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// OrdersConfig holds order generation settings.
type OrdersConfig struct {
	// CutoffWeekday closes the generation window (inclusive).
	CutoffWeekday time.Weekday
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled           bool
	CompressThreshold int
}

// MigrationsConfig locates SQL migrations.
type MigrationsConfig struct {
	Path string
	// AutoApply runs pending migrations when the server starts.
	AutoApply bool
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/barstock")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BARSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.read_timeout", 15*time.Second)
	v.SetDefault("app.write_timeout", 30*time.Second)
	v.SetDefault("app.shutdown_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.statement_timeout", 30*time.Second)
	v.SetDefault("orders.cutoff_weekday", "wednesday")
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.compress_threshold", 10*1024)
	v.SetDefault("migrations.path", "migrations")
	v.SetDefault("migrations.auto_apply", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	weekday, err := ParseWeekday(v.GetString("orders.cutoff_weekday"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:             v.GetString("app.env"),
			Port:            v.GetString("app.port"),
			ReadTimeout:     v.GetDuration("app.read_timeout"),
			WriteTimeout:    v.GetDuration("app.write_timeout"),
			ShutdownTimeout: v.GetDuration("app.shutdown_timeout"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Database: DatabaseConfig{
			URL:              v.GetString("database.url"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		Orders: OrdersConfig{
			CutoffWeekday: weekday,
		},
		Audit: AuditConfig{
			Enabled:           v.GetBool("audit.enabled"),
			CompressThreshold: v.GetInt("audit.compress_threshold"),
		},
		Migrations: MigrationsConfig{
			Path:      v.GetString("migrations.path"),
			AutoApply: v.GetBool("migrations.auto_apply"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

// ParseWeekday accepts an English weekday name (case-insensitive) or its number (0 = Sunday).
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] || s == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
