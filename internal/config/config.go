package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "dabir"
	DefaultPGSSLMode    = "disable"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Admin     AdminConfig     `toml:"admin"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Assistant AssistantConfig `toml:"assistant"`
	Upstream  UpstreamConfig  `toml:"upstream"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// AssistantConfig locates the internal assistant endpoint the bot pipeline
// proxies to. InternalAppURL takes priority over the loopback candidates,
// PublicAppURL is the last resort.
type AssistantConfig struct {
	InternalAppURL string `toml:"internal_app_url"`
	PublicAppURL   string `toml:"public_app_url"`
	Port           int    `toml:"port"`
}

// UpstreamConfig holds the OpenAI-compatible endpoints the assistant handler
// forwards to, one per model preference.
type UpstreamConfig struct {
	LocalBaseURL string `toml:"local_base_url"`
	LocalModel   string `toml:"local_model"`
	CloudBaseURL string `toml:"cloud_base_url"`
	CloudModel   string `toml:"cloud_model"`
	CloudAPIKey  string `toml:"cloud_api_key"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Assistant: AssistantConfig{
			Port: 8080,
		},
		Upstream: UpstreamConfig{
			LocalBaseURL: "http://127.0.0.1:11434/v1",
			LocalModel:   "llama3.1",
			CloudModel:   "gpt-4o-mini",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}
