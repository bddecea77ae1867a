package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, read from config.yaml next to
// the binary (or CONFIG_PATH) with INTEL_-prefixed env overrides, e.g.
// INTEL_DATABASE_DSN.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Location LocationConfig `mapstructure:"location"`
	Graph    GraphConfig    `mapstructure:"graph"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminUser     string        `mapstructure:"admin_user"`
	AdminPassword string        `mapstructure:"admin_password"`
}

type VisionConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Region string `mapstructure:"region"`
}

type LocationConfig struct {
	// Headquarters coordinate, the last tier of the alert coordinate
	// fallback chain.
	DefaultLat string        `mapstructure:"default_lat"`
	DefaultLon string        `mapstructure:"default_lon"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type GraphConfig struct {
	// IncidentWindow bounds how many recent incidents feed the link graph.
	IncidentWindow int `mapstructure:"incident_window"`
}

// Load reads the configuration, applying defaults for everything optional.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("vision.url", "https://api.platerecognizer.com/v1/plate-reader/")
	v.SetDefault("vision.region", "mx")
	v.SetDefault("location.default_lat", "29.072967")
	v.SetDefault("location.default_lon", "-110.955919")
	v.SetDefault("location.stale_after", 5*time.Minute)
	v.SetDefault("graph.incident_window", 1000)

	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env and defaults can carry a deployment.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	return &cfg, nil
}
