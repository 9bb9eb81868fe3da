package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run_mode default = %q, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.TryOn.Endpoint == "" || !strings.HasPrefix(cfg.TryOn.Endpoint, "https://") {
		t.Errorf("tryon endpoint default missing, got %q", cfg.TryOn.Endpoint)
	}
	if cfg.TryOn.CallTimeoutSeconds != 120 {
		t.Errorf("call timeout default = %d, want 120", cfg.TryOn.CallTimeoutSeconds)
	}
	if cfg.TryOn.DownloadTimeoutSeconds != 10 {
		t.Errorf("download timeout default = %d, want 10", cfg.TryOn.DownloadTimeoutSeconds)
	}
	if cfg.Storage.WorkDir == "" {
		t.Error("workdir default missing")
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := &Config{}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeRunModeAliases(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("polling alias not normalized, got %q", cfg.Telegram.RunMode)
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown run_mode")
	}
}

func TestNormalizeWebhookRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without url")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize webhook: %v", err)
	}
}

func TestNormalizeTryOnEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.TryOn.Endpoint = "https://my-space.hf.space/"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.TryOn.Endpoint != "https://my-space.hf.space" {
		t.Errorf("trailing slash not trimmed: %q", cfg.TryOn.Endpoint)
	}

	cfg = validConfig()
	cfg.TryOn.Endpoint = "ftp://nope"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for non-http endpoint")
	}

	cfg = validConfig()
	cfg.TryOn.CallTimeoutSeconds = -1
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for negative call timeout")
	}
}

func TestNormalizeDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = "db.internal"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error when host set without user and name")
	}

	cfg = validConfig()
	cfg.Database.Host = "db.internal"
	cfg.Database.User = "bot"
	cfg.Database.Name = "tryon"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize database: %v", err)
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults not applied: %+v", cfg.Database)
	}
	if cfg.Database.MaxConnections != 4 {
		t.Errorf("max_connections default = %d, want 4", cfg.Database.MaxConnections)
	}
	if !cfg.Database.Enabled() {
		t.Error("database with host should be enabled")
	}
	if (validConfig()).Database.Enabled() {
		t.Error("database without host should be disabled")
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Errorf("exclusion not normalized: %q", cfg.RateLimit.ExcludeUpdates[0])
	}

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown exclusion")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
telegram:
  token: "123:abc"
  run_mode: longpoll
tryon:
  endpoint: https://my-space.hf.space
  call_timeout_seconds: 60
storage:
  workdir: /tmp/tryon-test
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.TryOn.CallTimeoutSeconds != 60 {
		t.Errorf("call timeout = %d, want 60", cfg.TryOn.CallTimeoutSeconds)
	}
	if cfg.TryOn.DownloadTimeoutSeconds != 10 {
		t.Errorf("download timeout default = %d, want 10", cfg.TryOn.DownloadTimeoutSeconds)
	}
	if cfg.Storage.WorkDir != "/tmp/tryon-test" {
		t.Errorf("workdir = %q", cfg.Storage.WorkDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
