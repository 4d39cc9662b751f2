package bitable

import "time"

// DefaultBaseURL is the open-platform endpoint for the destination tables.
const DefaultBaseURL = "https://open.feishu.cn"

const (
	pathTenantToken = "/open-apis/auth/v3/tenant_access_token/internal"

	// record paths are rooted at one app; table id and record id fill the
	// remaining segments.
	recordsPathFmt     = "/open-apis/bitable/v1/apps/%s/tables/%s/records"
	recordPathFmt      = "/open-apis/bitable/v1/apps/%s/tables/%s/records/%s"
	batchCreatePathFmt = "/open-apis/bitable/v1/apps/%s/tables/%s/records/batch_create"
	batchUpdatePathFmt = "/open-apis/bitable/v1/apps/%s/tables/%s/records/batch_update"
)

// errCodeAuthExpired is the platform code for an invalid or expired tenant
// token.
const errCodeAuthExpired = 99991663

const (
	defaultTokenTTL    = 7200 * time.Second
	tokenRefreshMargin = 5 * time.Minute
)

const (
	// DefaultMaxRetries bounds retry attempts per request.
	DefaultMaxRetries = 3
	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	retryInitialInterval = 2 * time.Second
	retryMaxInterval     = 10 * time.Second
)

const (
	// findPageSize is enough for key lookups: the key field is unique per
	// table, so the first match is the only match.
	findPageSize = 1
	// listPageSize is the page size for full-table listing.
	listPageSize = 100

	// recordIDCacheSize bounds the find-by-key cache; entries expire so a
	// record deleted out-of-band is re-resolved eventually.
	recordIDCacheSize = 4096
	recordIDCacheTTL  = 10 * time.Minute
)

const (
	opFindRecord  = "find_record"
	opCreate      = "create_record"
	opUpdate      = "update_record"
	opBatchCreate = "batch_create"
	opBatchUpdate = "batch_update"
	opListRecords = "list_records"
)
