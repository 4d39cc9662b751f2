// Package bitable implements the destination writer against a Feishu
// multi-dimensional table app: find-by-key lookups, single and batch
// upserts, and paginated listing, with tenant token caching and bounded
// refresh-then-retry handled internally.
package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/syncline-io/approvalsync/internal/domain"
	"github.com/syncline-io/approvalsync/internal/logger"
	"github.com/syncline-io/approvalsync/internal/metrics"
)

// Config carries the credentials and tuning for a destination client.
type Config struct {
	AppID      string
	AppSecret  string
	AppToken   string // the bitable app all tables live under
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// Client is the destination writer. Record ids resolved by key are cached
// so repeated upserts of the same instance skip the find round-trip.
type Client struct {
	appID      string
	appSecret  string
	appToken   string
	baseURL    string
	httpClient *http.Client
	maxRetries uint64

	session *session
	idCache *expirable.LRU[string, string]
}

// NewClient creates a destination client from config, applying defaults for
// anything unset.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		appToken:   cfg.AppToken,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: uint64(cfg.MaxRetries),
		session:    &session{},
		idCache:    expirable.NewLRU[string, string](recordIDCacheSize, nil, recordIDCacheTTL),
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type recordPayload struct {
	RecordID string         `json:"record_id,omitempty"`
	Fields   map[string]any `json:"fields"`
}

type recordData struct {
	Record recordPayload `json:"record"`
}

type recordsData struct {
	Records []recordPayload `json:"records"`
}

type pageData struct {
	Items     []recordPayload `json:"items"`
	HasMore   bool            `json:"has_more"`
	PageToken string          `json:"page_token"`
}

// FindByKey looks up the single record whose keyField equals keyValue.
// A missing record is (nil, nil); transport and API failures are returned
// so the caller can count the instance as failed instead of double-writing.
func (c *Client) FindByKey(ctx context.Context, tableID, keyField, keyValue string) (*domain.TableRecord, error) {
	cacheKey := tableID + "\x00" + keyField + "\x00" + keyValue
	if id, ok := c.idCache.Get(cacheKey); ok {
		return &domain.TableRecord{RecordID: id}, nil
	}

	params := url.Values{}
	params.Set("filter", fmt.Sprintf("CurrentValue.[%s] = %q", keyField, keyValue))
	params.Set("page_size", fmt.Sprint(findPageSize))

	var page pageData
	err := c.withRetry(ctx, opFindRecord, func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, fmt.Sprintf(recordsPathFmt, c.appToken, tableID)+"?"+params.Encode(), nil, &page)
	})
	if err != nil {
		return nil, fmt.Errorf("find record by %s=%s: %w", keyField, keyValue, err)
	}
	if len(page.Items) == 0 {
		return nil, nil
	}

	found := page.Items[0]
	c.idCache.Add(cacheKey, found.RecordID)
	return &domain.TableRecord{RecordID: found.RecordID, Fields: found.Fields}, nil
}

// Upsert writes one record: update when recordID is set, insert otherwise.
// It returns the record id of the written record.
func (c *Client) Upsert(ctx context.Context, tableID, recordID string, fields map[string]any) (string, error) {
	if recordID == "" {
		return c.create(ctx, tableID, fields)
	}
	return recordID, c.update(ctx, tableID, recordID, fields)
}

func (c *Client) create(ctx context.Context, tableID string, fields map[string]any) (string, error) {
	var data recordData
	err := c.withRetry(ctx, opCreate, func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, fmt.Sprintf(recordsPathFmt, c.appToken, tableID),
			recordPayload{Fields: fields}, &data)
	})
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	return data.Record.RecordID, nil
}

func (c *Client) update(ctx context.Context, tableID, recordID string, fields map[string]any) error {
	var data recordData
	err := c.withRetry(ctx, opUpdate, func(ctx context.Context) error {
		return c.call(ctx, http.MethodPut, fmt.Sprintf(recordPathFmt, c.appToken, tableID, recordID),
			recordPayload{Fields: fields}, &data)
	})
	if err != nil {
		return fmt.Errorf("update record %s: %w", recordID, err)
	}
	return nil
}

// BatchUpsert partitions records into creates (no record id) and updates
// (record id set) and writes each group in one call. The groups fail
// independently; a partial failure still reports the ids the other group
// wrote.
func (c *Client) BatchUpsert(ctx context.Context, tableID string, records []domain.TableRecord) (*domain.BatchResult, error) {
	var creates, updates []recordPayload
	for _, r := range records {
		p := recordPayload{RecordID: r.RecordID, Fields: r.Fields}
		if r.RecordID == "" {
			creates = append(creates, p)
		} else {
			updates = append(updates, p)
		}
	}

	result := &domain.BatchResult{}
	var errs []error

	if len(creates) > 0 {
		var data recordsData
		err := c.withRetry(ctx, opBatchCreate, func(ctx context.Context) error {
			return c.call(ctx, http.MethodPost, fmt.Sprintf(batchCreatePathFmt, c.appToken, tableID),
				recordsData{Records: creates}, &data)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("batch create %d records: %w", len(creates), err))
		} else {
			for _, r := range data.Records {
				result.CreatedIDs = append(result.CreatedIDs, r.RecordID)
			}
		}
	}

	if len(updates) > 0 {
		var data recordsData
		err := c.withRetry(ctx, opBatchUpdate, func(ctx context.Context) error {
			return c.call(ctx, http.MethodPost, fmt.Sprintf(batchUpdatePathFmt, c.appToken, tableID),
				recordsData{Records: updates}, &data)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("batch update %d records: %w", len(updates), err))
		} else {
			for _, r := range updates {
				result.UpdatedIDs = append(result.UpdatedIDs, r.RecordID)
			}
		}
	}

	return result, errors.Join(errs...)
}

// ListRecords walks the whole table page by page.
func (c *Client) ListRecords(ctx context.Context, tableID string) ([]domain.TableRecord, error) {
	var out []domain.TableRecord
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("page_size", fmt.Sprint(listPageSize))
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		var page pageData
		err := c.withRetry(ctx, opListRecords, func(ctx context.Context) error {
			return c.call(ctx, http.MethodGet, fmt.Sprintf(recordsPathFmt, c.appToken, tableID)+"?"+params.Encode(), nil, &page)
		})
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		for _, item := range page.Items {
			out = append(out, domain.TableRecord{RecordID: item.RecordID, Fields: item.Fields})
		}
		if !page.HasMore || page.PageToken == "" {
			return out, nil
		}
		pageToken = page.PageToken
	}
}

// call issues an authenticated JSON request and decodes the envelope's data
// section into out. The token rides in the Authorization header, the
// platform's convention for the open-apis surface.
func (c *Client) call(ctx context.Context, method, pathAndQuery string, body any, out any) error {
	token, err := c.session.token(ctx, c)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err // network faults are transient
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &httpError{status: resp.StatusCode, body: truncate(data)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := checkEnvelope(env.Code, env.Msg); err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// withRetry runs fn with exponential backoff, refreshing the tenant token
// once invalidated. Exhaustion surfaces as ErrRetryExhausted.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	attempt := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	err := backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrAuthExpired) {
			c.session.invalidate()
			logger.FromContext(ctx).Warn("destination token expired, refreshing before retry",
				"operation", op, "attempt", attempt)
			return err
		}
		if isTransient(err) {
			logger.FromContext(ctx).Warn("transient destination error",
				"operation", op, "attempt", attempt, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	metrics.RemoteCallDuration.WithLabelValues(metrics.TargetDestination, op).Observe(time.Since(start).Seconds())
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.RemoteCalls.WithLabelValues(metrics.TargetDestination, op, outcome).Inc()

	if err != nil && retriable(err) {
		return fmt.Errorf("%w: %v", domain.ErrRetryExhausted, err)
	}
	return err
}

func retriable(err error) bool {
	return errors.Is(err, domain.ErrAuthExpired) || isTransient(err)
}

// checkEnvelope maps the platform's error envelope to error values: code 0
// is success, the auth-expired code wraps domain.ErrAuthExpired, everything
// else is a permanent API rejection.
func checkEnvelope(code int, msg string) error {
	switch code {
	case 0:
		return nil
	case errCodeAuthExpired:
		return fmt.Errorf("%w: %s", domain.ErrAuthExpired, msg)
	default:
		return &apiError{code: code, msg: msg}
	}
}

type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("destination api error %d: %s", e.code, e.msg)
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("destination http error %d: %s", e.status, e.body)
}

// isTransient reports whether err is worth retrying: network faults and
// rate-limit or server-side HTTP statuses. API rejections and decode
// failures are permanent.
func isTransient(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.status == http.StatusTooManyRequests || he.status >= http.StatusInternalServerError
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return false
}

func truncate(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
