// Package config loads the server configuration from a YAML file and
// TWITCHAUTH_* environment variables. Environment values win.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gwlsn/twitchauth/internal/auth/twitch"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TWITCHAUTH_"

// Config is the top-level server configuration.
type Config struct {
	Listen   string     `yaml:"listen" env:"LISTEN"`
	LogLevel string     `yaml:"log_level" env:"LOG_LEVEL"`
	Auth     AuthConfig `yaml:"auth" envPrefix:"AUTH_"`
}

// AuthConfig configures sessions and the Twitch strategy. When Enabled is
// false every request is served as an anonymous user.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	Secret     string        `yaml:"secret" env:"SECRET"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	StateTTL   time.Duration `yaml:"state_ttl" env:"STATE_TTL"`
	Twitch     TwitchConfig  `yaml:"twitch" envPrefix:"TWITCH_"`
}

// TwitchConfig holds the Twitch application credentials.
type TwitchConfig struct {
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
	CallbackURL  string `yaml:"callback_url" env:"CALLBACK_URL"`
	// Scope is sent as-is; empty means user:read:email.
	Scope       string `yaml:"scope" env:"SCOPE"`
	ForceVerify bool   `yaml:"force_verify" env:"FORCE_VERIFY"`
	// OpenID enables ID token verification. Scope must then include openid.
	OpenID bool `yaml:"openid" env:"OPENID"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Auth: AuthConfig{
			Enabled:    true,
			SessionTTL: 24 * time.Hour,
			StateTTL:   10 * time.Minute,
		},
	}
}

// Load reads path (if non-empty) over the defaults and then applies
// environment overrides. A missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if !c.Auth.Enabled {
		return nil
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Auth.StateTTL <= 0 {
		return errors.New("auth.state_ttl must be positive")
	}
	tw := c.Auth.Twitch
	if tw.ClientID == "" {
		return errors.New("auth.twitch.client_id is required")
	}
	if tw.ClientSecret == "" {
		return errors.New("auth.twitch.client_secret is required")
	}
	if tw.CallbackURL == "" {
		return errors.New("auth.twitch.callback_url is required")
	}
	if tw.OpenID {
		scope := tw.Scope
		if scope == "" {
			scope = twitch.DefaultScope
		}
		if !slices.Contains(strings.Fields(scope), "openid") {
			return errors.New("auth.twitch.scope must include openid when auth.twitch.openid is set")
		}
	}
	return nil
}
