package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// FileEnv names the environment variable pointing at an optional config file.
const FileEnv = "GATEWAY_CONFIG"

// Config holds all gateway configuration.
type Config struct {
	Endpoints EndpointsConfig `yaml:"endpoints" toml:"endpoints"`
	Versions  VersionsConfig  `yaml:"versions" toml:"versions"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Refresh   RefreshConfig   `yaml:"refresh" toml:"refresh"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
}

// EndpointsConfig holds the backend base URLs.
type EndpointsConfig struct {
	Prod     string `envconfig:"GATEWAY_PROD_URL" yaml:"prod" toml:"prod"`
	Launcher string `envconfig:"GATEWAY_LAUNCHER_URL" yaml:"launcher" toml:"launcher"`
	Trading  string `envconfig:"GATEWAY_TRADING_URL" yaml:"trading" toml:"trading"`
	Ragfair  string `envconfig:"GATEWAY_RAGFAIR_URL" yaml:"ragfair" toml:"ragfair"`
}

// VersionsConfig holds the identity strings used until the refresh replaces them.
type VersionsConfig struct {
	Launcher string `envconfig:"GATEWAY_LAUNCHER_VERSION" yaml:"launcher" toml:"launcher"`
	Game     string `envconfig:"GATEWAY_GAME_VERSION" yaml:"game" toml:"game"`
	Unity    string `envconfig:"GATEWAY_UNITY_VERSION" yaml:"unity" toml:"unity"`
	Backend  string `envconfig:"GATEWAY_BACKEND_VERSION" yaml:"backend" toml:"backend"`
}

// TransportConfig holds per-handle transport settings.
type TransportConfig struct {
	Timeout          time.Duration `envconfig:"GATEWAY_TIMEOUT" yaml:"timeout" toml:"timeout"`
	RateLimitRPS     float64       `envconfig:"GATEWAY_RATE_LIMIT_RPS" yaml:"rate_limit_rps" toml:"rate_limit_rps"`
	BreakerEnabled   bool          `envconfig:"GATEWAY_BREAKER_ENABLED" yaml:"breaker_enabled" toml:"breaker_enabled"`
	BreakerThreshold uint32        `envconfig:"GATEWAY_BREAKER_THRESHOLD" yaml:"breaker_threshold" toml:"breaker_threshold"`
	BreakerCooldown  time.Duration `envconfig:"GATEWAY_BREAKER_COOLDOWN" yaml:"breaker_cooldown" toml:"breaker_cooldown"`
}

// RefreshConfig controls the startup version refresh.
type RefreshConfig struct {
	OnStart bool          `envconfig:"GATEWAY_REFRESH_ON_START" yaml:"on_start" toml:"on_start"`
	Timeout time.Duration `envconfig:"GATEWAY_REFRESH_TIMEOUT" yaml:"timeout" toml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
	// Output lists zap sink URLs or file paths.
	Output []string `envconfig:"LOG_OUTPUT" yaml:"output" toml:"output"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			Prod:     "https://prod.escapefromtarkov.com",
			Launcher: "https://launcher.escapefromtarkov.com",
			Trading:  "https://trading.escapefromtarkov.com",
			Ragfair:  "https://ragfair.escapefromtarkov.com",
		},
		Versions: VersionsConfig{
			Launcher: "10.4.4.123",
			Game:     "0.12.9.10988",
			Unity:    "2018.4.28f1",
			Backend:  "6",
		},
		Transport: TransportConfig{
			Timeout:          30 * time.Second,
			RateLimitRPS:     0,
			BreakerEnabled:   true,
			BreakerThreshold: 10,
			BreakerCooldown:  30 * time.Second,
		},
		Refresh: RefreshConfig{
			OnStart: true,
			Timeout: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Output:      []string{"stderr"},
		},
	}
}

// Load builds configuration from defaults, the optional file named by
// GATEWAY_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or returns default on any error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML or TOML file on top of the defaults.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the gateway cannot use.
func (c *Config) Validate() error {
	endpoints := map[string]string{
		"prod":     c.Endpoints.Prod,
		"launcher": c.Endpoints.Launcher,
		"trading":  c.Endpoints.Trading,
		"ragfair":  c.Endpoints.Ragfair,
	}
	for name, raw := range endpoints {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s endpoint %q", name, raw)
		}
	}

	if c.Transport.Timeout <= 0 {
		return fmt.Errorf("transport timeout must be positive")
	}
	if c.Transport.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.Transport.BreakerEnabled && c.Transport.BreakerThreshold == 0 {
		return fmt.Errorf("breaker threshold must be positive when the breaker is enabled")
	}
	return nil
}
