package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Policy.StallThreshold != 10*time.Minute {
		t.Errorf("StallThreshold = %v, want 10m", cfg.Policy.StallThreshold)
	}
	if cfg.Policy.HardKillThreshold != 30*time.Minute {
		t.Errorf("HardKillThreshold = %v, want 30m", cfg.Policy.HardKillThreshold)
	}
	if cfg.Policy.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Policy.PollInterval)
	}
	if cfg.Policy.GitTimeout != 30*time.Second {
		t.Errorf("GitTimeout = %v, want 30s", cfg.Policy.GitTimeout)
	}
	if cfg.Policy.AITimeout != 120*time.Second {
		t.Errorf("AITimeout = %v, want 120s", cfg.Policy.AITimeout)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
policy:
  stall_threshold: 5m
  hard_kill_threshold: 15m
  poll_interval: 10s
  grace_period: 1s
  git_timeout: 20s
  ai_timeout: 60s
  mux_timeout: 3s
gateway:
  base_url: https://gateway.internal
  default_model: sonnet
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Policy.StallThreshold != 5*time.Minute {
		t.Errorf("StallThreshold = %v, want 5m", cfg.Policy.StallThreshold)
	}
	if cfg.Policy.HardKillThreshold != 15*time.Minute {
		t.Errorf("HardKillThreshold = %v, want 15m", cfg.Policy.HardKillThreshold)
	}
	if cfg.Gateway.BaseURL != "https://gateway.internal" {
		t.Errorf("Gateway.BaseURL = %q, want https://gateway.internal", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.DefaultModel != "sonnet" {
		t.Errorf("Gateway.DefaultModel = %q, want sonnet", cfg.Gateway.DefaultModel)
	}
}

// TestValidate_ClampsOutOfRange covers the teacher's clamp-don't-error
// policy convention.
func TestValidate_ClampsOutOfRange(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil (clamp, never fail)", err)
	}
	if cfg.Policy.StallThreshold != 10*time.Minute {
		t.Errorf("zero StallThreshold should clamp to 10m, got %v", cfg.Policy.StallThreshold)
	}

	cfg.Policy.StallThreshold = -1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Policy.StallThreshold != 10*time.Minute {
		t.Errorf("negative StallThreshold should clamp to 10m, got %v", cfg.Policy.StallThreshold)
	}
}

// TestLoadSaveLoad_RoundTrip covers the spec's round-trip law: config
// load -> dump -> load is identity on the validated subset.
func TestLoadSaveLoad_RoundTrip(t *testing.T) {
	projectRoot := t.TempDir()
	cfg := Default()
	cfg.Policy.StallThreshold = 7 * time.Minute
	cfg.Gateway.BaseURL = "https://gw.example"

	if err := Save(projectRoot, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := LoadFromPath(filepath.Join(projectRoot, ".overstory", "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if reloaded.Policy.StallThreshold != cfg.Policy.StallThreshold {
		t.Errorf("StallThreshold after round-trip = %v, want %v", reloaded.Policy.StallThreshold, cfg.Policy.StallThreshold)
	}
	if reloaded.Gateway.BaseURL != cfg.Gateway.BaseURL {
		t.Errorf("Gateway.BaseURL after round-trip = %q, want %q", reloaded.Gateway.BaseURL, cfg.Gateway.BaseURL)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/overstory"
	if dir != expected {
		t.Errorf("getUserConfigDir() = %q, want %q", dir, expected)
	}
}

func TestFindProjectConfig_AbsentReturnsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	if got := findProjectConfig(tmpDir); got != "" {
		t.Errorf("findProjectConfig() = %q, want empty when no config exists", got)
	}
}
