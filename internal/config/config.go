// Package config handles configuration loading and management for the
// orchestration core. It supports XDG config paths, project-level
// overrides, and environment variables, following the teacher's
// Load/Save/XDG-path conventions in internal/config/config.go.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/dkremnev/overstory/internal/errs"
)

// Config holds the declarative project configuration loaded from
// .overstory/config.yaml (spec §6 state directory layout).
type Config struct {
	Policy PolicyConfig `mapstructure:"policy"`
	Gateway GatewayConfig `mapstructure:"gateway"`
}

// PolicyConfig holds watchdog and resolver tunables (spec §6, "policy:
// key"). Validate clamps out-of-range values to defaults the way the
// teacher's policy.Config.Validate() does, rather than erroring.
type PolicyConfig struct {
	StallThreshold    time.Duration `mapstructure:"stall_threshold"`
	HardKillThreshold time.Duration `mapstructure:"hard_kill_threshold"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`
	GitTimeout        time.Duration `mapstructure:"git_timeout"`
	AITimeout         time.Duration `mapstructure:"ai_timeout"`
	MuxTimeout        time.Duration `mapstructure:"mux_timeout"`
}

// GatewayConfig holds the optional AI gateway settings consumed by
// internal/aiclient (spec §6, "optional gateway vars").
type GatewayConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
}

// Validate clamps zero or invalid policy fields to their documented
// defaults. It never fails.
func (c *Config) Validate() error {
	if c.Policy.StallThreshold <= 0 {
		c.Policy.StallThreshold = 10 * time.Minute
	}
	if c.Policy.HardKillThreshold <= 0 {
		c.Policy.HardKillThreshold = 30 * time.Minute
	}
	if c.Policy.PollInterval <= 0 {
		c.Policy.PollInterval = 30 * time.Second
	}
	if c.Policy.GracePeriod <= 0 {
		c.Policy.GracePeriod = 2 * time.Second
	}
	if c.Policy.GitTimeout <= 0 {
		c.Policy.GitTimeout = 30 * time.Second
	}
	if c.Policy.AITimeout <= 0 {
		c.Policy.AITimeout = 120 * time.Second
	}
	if c.Policy.MuxTimeout <= 0 {
		c.Policy.MuxTimeout = 5 * time.Second
	}
	return nil
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("policy.stall_threshold", "10m")
	v.SetDefault("policy.hard_kill_threshold", "30m")
	v.SetDefault("policy.poll_interval", "30s")
	v.SetDefault("policy.grace_period", "2s")
	v.SetDefault("policy.git_timeout", "30s")
	v.SetDefault("policy.ai_timeout", "120s")
	v.SetDefault("policy.mux_timeout", "5s")
	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.default_model", "")
}

// Load loads configuration from the XDG global path, the project's
// .overstory/config.yaml, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (API_BASE_URL, API_AUTH_TOKEN via internal/aiclient directly)
// 2. Project config (<projectRoot>/.overstory/config.yaml)
// 3. User config (XDG ~/.config/overstory/config.yaml)
// 4. Built-in defaults
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errs.ConfigWrap("reading user config", err)
		}
	}

	projectConfig := findProjectConfig(projectRoot)
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, errs.ConfigWrap("merging project config", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("")
	v.BindEnv("gateway.base_url", "API_BASE_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.ConfigWrap("unmarshaling config", err)
	}
	_ = cfg.Validate()
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errs.ConfigWrap("reading config file", err).With("path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.ConfigWrap("unmarshaling config", err)
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes cfg to the project's .overstory/config.yaml.
func Save(projectRoot string, cfg *Config) error {
	dir := filepath.Join(projectRoot, ".overstory")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.ConfigWrap("creating .overstory directory", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("policy.stall_threshold", cfg.Policy.StallThreshold.String())
	v.Set("policy.hard_kill_threshold", cfg.Policy.HardKillThreshold.String())
	v.Set("policy.poll_interval", cfg.Policy.PollInterval.String())
	v.Set("policy.grace_period", cfg.Policy.GracePeriod.String())
	v.Set("policy.git_timeout", cfg.Policy.GitTimeout.String())
	v.Set("policy.ai_timeout", cfg.Policy.AITimeout.String())
	v.Set("policy.mux_timeout", cfg.Policy.MuxTimeout.String())
	v.Set("gateway.base_url", cfg.Gateway.BaseURL)
	v.Set("gateway.default_model", cfg.Gateway.DefaultModel)

	if err := v.WriteConfig(); err != nil {
		return errs.ConfigWrap("writing config", err)
	}
	return nil
}

// GetUserConfigPath returns the path to the XDG global config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "overstory")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "overstory")
	}
	return filepath.Join(home, ".config", "overstory")
}

// findProjectConfig returns projectRoot/.overstory/config.yaml if it exists.
func findProjectConfig(projectRoot string) string {
	path := filepath.Join(projectRoot, ".overstory", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
