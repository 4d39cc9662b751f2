package dingtalk

import "time"

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://oapi.dingtalk.com"

// API paths
const (
	pathToken          = "/gettoken"
	pathInstanceList   = "/topapi/processinstance/list"
	pathInstanceDetail = "/topapi/processinstance/get"
	pathUserGet        = "/topapi/v2/user/get"
)

// errCodeAuthExpired is the platform error code for an expired access token.
const errCodeAuthExpired = 40014

// Token lifecycle
const (
	defaultTokenTTL    = 7200 * time.Second
	tokenRefreshMargin = 5 * time.Minute
)

// Retry tuning
const (
	DefaultMaxRetries    = 3
	retryInitialInterval = 2 * time.Second
	retryMaxInterval     = 10 * time.Second
)

// DefaultTimeout bounds each HTTP call; the run has no per-run deadline.
const DefaultTimeout = 30 * time.Second

// Operation names used in logs and metrics
const (
	opListInstances = "list_instances"
	opGetDetail     = "get_instance_detail"
	opGetUser       = "get_user_info"
)
