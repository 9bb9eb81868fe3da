package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// TryOnConfig describes the external try-on inference endpoint.
type TryOnConfig struct {
	// Endpoint is the base URL of the Gradio space hosting the model.
	Endpoint string `yaml:"endpoint" envconfig:"TRYON_ENDPOINT"`
	// CallTimeoutSeconds bounds a single inference call including the
	// result stream; 0 -> default.
	CallTimeoutSeconds int `yaml:"call_timeout_seconds" envconfig:"TRYON_CALL_TIMEOUT_SECONDS"`
	// DownloadTimeoutSeconds bounds each image download; 0 -> default.
	DownloadTimeoutSeconds int `yaml:"download_timeout_seconds" envconfig:"TRYON_DOWNLOAD_TIMEOUT_SECONDS"`
}

// StorageConfig locates the working directory for per-cycle image artifacts.
type StorageConfig struct {
	WorkDir string `yaml:"workdir" envconfig:"STORAGE_WORKDIR"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// DatabaseConfig holds optional Postgres settings for the history recorder.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Enabled reports whether a database host is configured. The bot keeps all
// session state in memory; the database only stores the try-on audit history,
// so running without one is a supported mode.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	defaultTryOnEndpoint       = "https://nymbo-virtual-try-on.hf.space"
	defaultCallTimeoutSeconds  = 120
	defaultFetchTimeoutSeconds = 10
	defaultWorkDir             = "var/tryon"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text and photo messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	TryOn     TryOnConfig     `yaml:"tryon"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	// Database is optional; when host is empty the history recorder is disabled.
	Database DatabaseConfig `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	cfg.TryOn.Endpoint = strings.TrimSuffix(strings.TrimSpace(cfg.TryOn.Endpoint), "/")
	if cfg.TryOn.Endpoint == "" {
		cfg.TryOn.Endpoint = defaultTryOnEndpoint
	}
	if !strings.HasPrefix(cfg.TryOn.Endpoint, "http://") && !strings.HasPrefix(cfg.TryOn.Endpoint, "https://") {
		return fmt.Errorf("tryon.endpoint must be an http(s) URL, got %q", cfg.TryOn.Endpoint)
	}
	if cfg.TryOn.CallTimeoutSeconds < 0 {
		return fmt.Errorf("tryon.call_timeout_seconds must be >= 0")
	}
	if cfg.TryOn.CallTimeoutSeconds == 0 {
		cfg.TryOn.CallTimeoutSeconds = defaultCallTimeoutSeconds
	}
	if cfg.TryOn.DownloadTimeoutSeconds < 0 {
		return fmt.Errorf("tryon.download_timeout_seconds must be >= 0")
	}
	if cfg.TryOn.DownloadTimeoutSeconds == 0 {
		cfg.TryOn.DownloadTimeoutSeconds = defaultFetchTimeoutSeconds
	}

	if strings.TrimSpace(cfg.Storage.WorkDir) == "" {
		cfg.Storage.WorkDir = defaultWorkDir
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if cfg.Database.User == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.user and database.name are required when database.host is set")
		}
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
