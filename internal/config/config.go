package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = "8080"
	defaultDeclarationPath = "site.yaml"
	defaultRateLimitRPS    = 25.0
	defaultRateLimitBurst  = 50
	defaultMaxBodyBytes    = 1 << 20
	defaultLogLevel        = "info"
)

// Reload strategies applied when the declaration changes at runtime.
const (
	// ReloadReplace swaps the running configuration for the rebuilt one.
	ReloadReplace = "replace"
	// ReloadReconcile reconciles the rebuilt configuration over the running one.
	ReloadReconcile = "reconcile"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	DeclarationPath      string        `yaml:"declaration"`
	Watch                bool          `yaml:"watch"`
	WatchDebounce        time.Duration `yaml:"watch_debounce"`
	ReloadStrategy       string        `yaml:"reload_strategy"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	MaxBodyBytes         int64         `yaml:"max_body_bytes"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	Declaration          string        `yaml:"declaration"`
	Watch                *bool         `yaml:"watch"`
	WatchDebounce        string        `yaml:"watch_debounce"`
	ReloadStrategy       string        `yaml:"reload_strategy"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	MaxBodyBytes         int64         `yaml:"max_body_bytes"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// envConfig lists the environment variables understood by the service.
// Unset variables leave the corresponding field at its zero value.
type envConfig struct {
	Port           string         `env:"PORT"`
	Declaration    string         `env:"SITECONFIG_DECLARATION"`
	Watch          *bool          `env:"SITECONFIG_WATCH"`
	WatchDebounce  *time.Duration `env:"SITECONFIG_WATCH_DEBOUNCE"`
	ReloadStrategy string         `env:"SITECONFIG_RELOAD_STRATEGY"`
	LogLevel       string         `env:"LOG_LEVEL"`
	RateLimitRPS   *float64       `env:"RATE_LIMIT_RPS"`
	RateLimitBurst *int           `env:"RATE_LIMIT_BURST"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile      string
	Port            *string
	DeclarationPath *string
	Watch           *bool
	ReloadStrategy  *string
	LogLevel        *string
	RateLimitRPS    *float64
	RateLimitBurst  *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		DeclarationPath:      defaultDeclarationPath,
		Watch:                true,
		WatchDebounce:        250 * time.Millisecond,
		ReloadStrategy:       ReloadReplace,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		MaxBodyBytes:         defaultMaxBodyBytes,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.Declaration != "" {
		cfg.DeclarationPath = yamlCfg.Declaration
	}
	if yamlCfg.Watch != nil {
		cfg.Watch = *yamlCfg.Watch
	}
	if yamlCfg.ReloadStrategy != "" {
		cfg.ReloadStrategy = yamlCfg.ReloadStrategy
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = yamlCfg.MaxBodyBytes
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"watch_debounce", yamlCfg.WatchDebounce, &cfg.WatchDebounce},
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.field = parsed
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if port := strings.TrimSpace(envCfg.Port); port != "" {
		cfg.Port = port
	}
	if path := strings.TrimSpace(envCfg.Declaration); path != "" {
		cfg.DeclarationPath = path
	}
	if envCfg.Watch != nil {
		cfg.Watch = *envCfg.Watch
	}
	if envCfg.WatchDebounce != nil {
		cfg.WatchDebounce = *envCfg.WatchDebounce
	}
	if strategy := strings.TrimSpace(envCfg.ReloadStrategy); strategy != "" {
		cfg.ReloadStrategy = strategy
	}
	if level := strings.TrimSpace(envCfg.LogLevel); level != "" {
		cfg.LogLevel = level
	}
	if envCfg.RateLimitRPS != nil {
		cfg.RateLimitRPS = *envCfg.RateLimitRPS
	}
	if envCfg.RateLimitBurst != nil {
		cfg.RateLimitBurst = *envCfg.RateLimitBurst
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.DeclarationPath != nil && *overrides.DeclarationPath != "" {
		cfg.DeclarationPath = *overrides.DeclarationPath
	}
	if overrides.Watch != nil {
		cfg.Watch = *overrides.Watch
	}
	if overrides.ReloadStrategy != nil && *overrides.ReloadStrategy != "" {
		cfg.ReloadStrategy = *overrides.ReloadStrategy
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if strings.TrimSpace(cfg.DeclarationPath) == "" {
		return fmt.Errorf("declaration path cannot be empty")
	}
	if cfg.ReloadStrategy != ReloadReplace && cfg.ReloadStrategy != ReloadReconcile {
		return fmt.Errorf("reload strategy must be %q or %q, got %q", ReloadReplace, ReloadReconcile, cfg.ReloadStrategy)
	}
	if cfg.WatchDebounce < 0 {
		return fmt.Errorf("watch debounce must be >= 0")
	}
	return nil
}
