package config

// DefaultConfigPath is where Load looks when no path is given.
const DefaultConfigPath = "config.yaml"

// ExampleConfigPath is referenced in the missing-file error so a fresh
// checkout knows where to start.
const ExampleConfigPath = "config.example.yaml"

// Defaults applied after parsing.
const (
	DefaultCheckpointFile = "checkpoint.json"
	DefaultBatchSize      = 20
	DefaultMaxRetries     = 3
	DefaultHours          = 24
	DefaultLogDir         = "logs"
	DefaultLogLevel       = "INFO"
	DefaultMetricsJobName = "approvalsync"
)

// Environment variables that supply or override secrets so credentials can
// stay out of the config file.
const (
	EnvDingTalkAppKey    = "DINGTALK_APP_KEY"
	EnvDingTalkAppSecret = "DINGTALK_APP_SECRET"
	EnvFeishuAppID       = "FEISHU_APP_ID"
	EnvFeishuAppSecret   = "FEISHU_APP_SECRET"
	EnvFeishuAppToken    = "FEISHU_APP_TOKEN"
	EnvWebhookURL        = "NOTIFICATION_WEBHOOK_URL"
)
