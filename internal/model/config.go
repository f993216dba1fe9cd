package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SourceConfig holds the configuration for an additional IMAP mailbox.
type SourceConfig struct {
	// ID is the unique identifier for this source instance. It also keys
	// the mailbox password in the system keyring ("imap-<id>").
	ID string `mapstructure:"id" yaml:"id"`

	// Type identifies the source kind; only "imap" is configurable here.
	Type string `mapstructure:"type" yaml:"type"`

	// Name is the user-defined label for this source instance.
	Name string `mapstructure:"name" yaml:"name"`

	// UserID owns the synced messages.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// Enabled controls whether this source is actively polled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// PollIntervalSec is how often (in seconds) to fetch updates.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// Config holds source-specific settings (host, port, username, tls, mailbox).
	Config map[string]string `mapstructure:"config" yaml:"config"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	FrontendURL string   `mapstructure:"frontend_url" yaml:"frontend_url"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	SecretKey                string `mapstructure:"secret_key" yaml:"secret_key"`
	JWTAlgorithm             string `mapstructure:"jwt_algorithm" yaml:"jwt_algorithm"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes" yaml:"access_token_expire_minutes"`
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURI  string   `mapstructure:"redirect_uri" yaml:"redirect_uri"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SyncConfig controls background mailbox polling.
type SyncConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	UnreadQuery     string `mapstructure:"unread_query" yaml:"unread_query"`
	AttentionLabel  string `mapstructure:"attention_label" yaml:"attention_label"`
	MaxResults      int    `mapstructure:"max_results" yaml:"max_results"`
	Concurrency     int    `mapstructure:"concurrency" yaml:"concurrency"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Google   GoogleConfig   `mapstructure:"google" yaml:"google"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Sources  []SourceConfig `mapstructure:"sources" yaml:"sources"`
}

// DefaultSecretKey is the development-only signing key.
const DefaultSecretKey = "change-me-in-prod"

var defaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"openid",
}

// envBindings maps config keys to the deployment's environment variables.
var envBindings = map[string]string{
	"auth.secret_key":                  "SECRET_KEY",
	"auth.jwt_algorithm":               "JWT_ALGORITHM",
	"auth.access_token_expire_minutes": "ACCESS_TOKEN_EXPIRE_MINUTES",
	"server.addr":                      "SERVER_ADDR",
	"server.cors_origins":              "CORS_ORIGINS",
	"server.frontend_url":              "FRONTEND_APP_URL",
	"google.client_id":                 "GOOGLE_CLIENT_ID",
	"google.client_secret":             "GOOGLE_CLIENT_SECRET",
	"google.redirect_uri":              "GOOGLE_REDIRECT_URI",
	"google.scopes":                    "GMAIL_SCOPES",
	"database.path":                    "DATABASE_PATH",
	"logging.level":                    "LOG_LEVEL",
	"logging.format":                   "LOG_FORMAT",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/trackmate/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "trackmate", "config.yaml")
}

// setDefaults registers every default so missing keys resolve sensibly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("auth.secret_key", DefaultSecretKey)
	v.SetDefault("auth.jwt_algorithm", "HS256")
	v.SetDefault("auth.access_token_expire_minutes", 1440)
	v.SetDefault("google.redirect_uri", "http://localhost:8000/api/auth/google/callback")
	v.SetDefault("google.scopes", defaultScopes)
	v.SetDefault("database.path", "trackmate.db")
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.poll_interval_sec", 300)
	v.SetDefault("sync.unread_query", "is:unread newer_than:1d")
	v.SetDefault("sync.attention_label", LabelRequiresAttention)
	v.SetDefault("sync.max_results", 25)
	v.SetDefault("sync.concurrency", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// overlaid with environment variables (a .env file in the working directory
// is honoured). A missing file is not an error.
func LoadConfig(path string) (*AppConfig, error) {
	// .env is a development convenience; its absence is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Environment lists arrive as single strings.
	cfg.Server.CORSOrigins = splitList(v.GetStringSlice("server.cors_origins"), ",")
	cfg.Google.Scopes = splitList(v.GetStringSlice("google.scopes"), " ")

	// Apply defaults for each source entry.
	for i := range cfg.Sources {
		if cfg.Sources[i].Type == "" {
			cfg.Sources[i].Type = string(SourceTypeIMAP)
		}
		if cfg.Sources[i].PollIntervalSec == 0 {
			cfg.Sources[i].PollIntervalSec = cfg.Sync.PollIntervalSec
		}
		if !cfg.Sources[i].Enabled {
			// Viper unmarshals missing bools as false; treat unset as true.
			key := fmt.Sprintf("sources.%d.enabled", i)
			if !v.IsSet(key) {
				cfg.Sources[i].Enabled = true
			}
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("auth", cfg.Auth)
	v.Set("google", cfg.Google)
	v.Set("database", cfg.Database)
	v.Set("sync", cfg.Sync)
	v.Set("logging", cfg.Logging)
	v.Set("sources", cfg.Sources)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// splitList flattens entries that themselves contain sep-separated values.
func splitList(in []string, sep string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, sep) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
