// Package config loads the YAML run configuration. Secrets can live in the
// file, in the environment, or in a .env file; environment values win.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syncline-io/approvalsync/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	DingTalk     DingTalkConfig     `yaml:"dingtalk"`
	Feishu       FeishuConfig       `yaml:"feishu"`
	Sync         SyncConfig         `yaml:"sync"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`
}

// DingTalkConfig is the source platform's credentials and endpoint.
type DingTalkConfig struct {
	AppKey    string `yaml:"app_key" validate:"required"`
	AppSecret string `yaml:"app_secret" validate:"required"`
	BaseURL   string `yaml:"base_url"`
}

// FeishuConfig is the destination platform's credentials, endpoint and
// table identifiers. The action table is optional; leaving it empty
// disables action history rows.
type FeishuConfig struct {
	AppID     string       `yaml:"app_id" validate:"required"`
	AppSecret string       `yaml:"app_secret" validate:"required"`
	AppToken  string       `yaml:"app_token" validate:"required"`
	BaseURL   string       `yaml:"base_url"`
	Tables    TablesConfig `yaml:"tables"`
}

// TablesConfig names the destination tables.
type TablesConfig struct {
	Main   string `yaml:"main" validate:"required"`
	Action string `yaml:"action"`
}

// SyncConfig tunes the engine.
type SyncConfig struct {
	CheckpointFile string   `yaml:"checkpoint_file"`
	BatchSize      int      `yaml:"batch_size" validate:"gte=0"`
	MaxRetries     int      `yaml:"max_retries" validate:"gte=0"`
	DefaultHours   int      `yaml:"default_hours" validate:"gte=0"`
	ProcessCode    string   `yaml:"process_code"`
	Statuses       []string `yaml:"statuses"`
}

// NotificationConfig configures the summary webhook.
type NotificationConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// MetricsConfig configures the optional end-of-run push. An empty gateway
// URL disables the push.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	JobName        string `yaml:"job_name"`
}

// LogConfig configures the session log.
type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Load reads and validates the configuration at path. A .env file is loaded
// first, if present, so secrets can stay out of the config file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (copy %s and fill in credentials)",
				domain.ErrConfigNotFound, path, ExampleConfigPath)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", domain.ErrConfigInvalid, path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrideFromEnv(&c.DingTalk.AppKey, EnvDingTalkAppKey)
	overrideFromEnv(&c.DingTalk.AppSecret, EnvDingTalkAppSecret)
	overrideFromEnv(&c.Feishu.AppID, EnvFeishuAppID)
	overrideFromEnv(&c.Feishu.AppSecret, EnvFeishuAppSecret)
	overrideFromEnv(&c.Feishu.AppToken, EnvFeishuAppToken)
	overrideFromEnv(&c.Notification.WebhookURL, EnvWebhookURL)
}

func overrideFromEnv(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func (c *Config) applyDefaults() {
	if c.Sync.CheckpointFile == "" {
		c.Sync.CheckpointFile = DefaultCheckpointFile
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = DefaultBatchSize
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = DefaultMaxRetries
	}
	if c.Sync.DefaultHours == 0 {
		c.Sync.DefaultHours = DefaultHours
	}
	if c.Log.Dir == "" {
		c.Log.Dir = DefaultLogDir
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Metrics.JobName == "" {
		c.Metrics.JobName = DefaultMetricsJobName
	}
}
