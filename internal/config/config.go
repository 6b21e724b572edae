package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"lynck-space/internal/email"
)

const DEFAULT_SUPPORT_URL = "https://lynck.space/support"

// Size in pixels of generated calendar-feed QR images
const QR_IMAGE_SIZE = 512

// GoogleConfig holds the OAuth client used to reach the Google Calendar API.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type PlansConfig struct {
	PolicyFile string `mapstructure:"policy_file"` // Path to the plan policy file
}

type Config struct {
	// Secret key for signing tokens. Must be set in production.
	Secret string `mapstructure:"secret"`
	// TTL for short-lived tokens (feed tokens etc.) in seconds
	TokenTTL   uint   `mapstructure:"token_ttl"`
	NonceStore string `mapstructure:"nonce_store"`
	LogLevel   string `mapstructure:"log_level"`

	// Comma separated list of allowed CIDR networks. Empty means allow all.
	AllowedNetworks string `mapstructure:"allowed_networks"`

	// User authentication TTL in days.
	UserAuthTTL uint `mapstructure:"user_auth_ttl"`

	BaseURL    string `mapstructure:"base_url"` // Base URL for the application, e.g. https://app.lynck.space/
	SupportURL string `mapstructure:"support_url"`

	Storage Storage `mapstructure:"storage"`

	Google GoogleConfig `mapstructure:"google"`

	Plans PlansConfig `mapstructure:"plans"`

	// Outbound email (sync report notifications)
	Email email.Config `mapstructure:"email"`
}

var Cfg *Config

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from config files and environment variables.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvPrefix("")

	if len(configFile) > 0 {
		for _, path := range configFile {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	// Load configuration from environment variables
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	// Convert relative sqlite path to absolute instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("SECRET configuration variable is required in production")
		} else {
			slog.Warn("Secret is not set. Do not use in production.")
		}
	}

	// Publish the loaded configuration; packages read it through Cfg.
	Cfg = &cfg

	return Cfg, nil
}
