// Package dingtalk implements the source reader against the DingTalk
// approval API: time-bounded paginated instance listing plus per-instance
// detail, with token caching and bounded refresh-then-retry handled
// internally so callers only see overall success or retry exhaustion.
package dingtalk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/syncline-io/approvalsync/internal/domain"
	"github.com/syncline-io/approvalsync/internal/logger"
	"github.com/syncline-io/approvalsync/internal/metrics"
)

// Config carries the credentials and tuning for a source client.
type Config struct {
	AppKey     string
	AppSecret  string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// Client is the DingTalk source reader. One client serves exactly one run;
// the token cache is not shared across processes.
type Client struct {
	appKey     string
	appSecret  string
	baseURL    string
	httpClient *http.Client
	maxRetries uint64

	session *session
}

// NewClient creates a source client from config, applying defaults for
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
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: uint64(cfg.MaxRetries),
		session:    &session{},
	}
}

type listResult struct {
	List       []domain.InstanceSummary `json:"list"`
	HasMore    bool                     `json:"has_more"`
	NextCursor int64                    `json:"next_cursor"`
}

type listEnvelope struct {
	ErrCode int        `json:"errcode"`
	ErrMsg  string     `json:"errmsg"`
	Result  listResult `json:"result"`
}

type detailEnvelope struct {
	ErrCode         int                   `json:"errcode"`
	ErrMsg          string                `json:"errmsg"`
	ProcessInstance domain.InstanceDetail `json:"process_instance"`
}

type userEnvelope struct {
	ErrCode int               `json:"errcode"`
	ErrMsg  string            `json:"errmsg"`
	Result  domain.SourceUser `json:"result"`
}

// ListInstances fetches one page of approval instances inside the window.
// Window bounds are inclusive on the platform side.
func (c *Client) ListInstances(ctx context.Context, q domain.ListQuery) (*domain.InstancePage, error) {
	body := map[string]any{
		"start_time": strconv.FormatInt(domain.MillisFromTime(q.Start), 10),
		"end_time":   strconv.FormatInt(domain.MillisFromTime(q.End), 10),
		"cursor":     q.Cursor,
		"size":       q.Size,
	}
	if q.ProcessCode != "" {
		body["process_code"] = q.ProcessCode
	}
	if len(q.Statuses) > 0 {
		body["statuses"] = q.Statuses
	}

	var page *domain.InstancePage
	err := c.withRetry(ctx, opListInstances, func(ctx context.Context) error {
		var env listEnvelope
		if err := c.call(ctx, http.MethodPost, pathInstanceList, body, &env); err != nil {
			return err
		}
		if err := checkEnvelope(env.ErrCode, env.ErrMsg); err != nil {
			return err
		}
		page = &domain.InstancePage{
			Items:      env.Result.List,
			HasMore:    env.Result.HasMore,
			NextCursor: env.Result.NextCursor,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("fetched instance page",
		"count", len(page.Items), "has_more", page.HasMore, "next_cursor", page.NextCursor)
	return page, nil
}

// GetInstanceDetail fetches the full detail of one instance, including its
// form fields and task history.
func (c *Client) GetInstanceDetail(ctx context.Context, instanceID string) (*domain.InstanceDetail, error) {
	var detail *domain.InstanceDetail
	err := c.withRetry(ctx, opGetDetail, func(ctx context.Context) error {
		params := url.Values{"process_instance_id": {instanceID}}
		var env detailEnvelope
		if err := c.get(ctx, pathInstanceDetail, params, &env); err != nil {
			return err
		}
		if err := checkEnvelope(env.ErrCode, env.ErrMsg); err != nil {
			return err
		}
		detail = &env.ProcessInstance
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get instance detail %s: %w", instanceID, err)
	}
	return detail, nil
}

// GetUserInfo looks up a user profile. The lookup is best-effort: any
// failure is logged and reported as (nil, nil).
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*domain.SourceUser, error) {
	var user *domain.SourceUser
	err := c.withRetry(ctx, opGetUser, func(ctx context.Context) error {
		var env userEnvelope
		if err := c.call(ctx, http.MethodPost, pathUserGet, map[string]any{"userid": userID}, &env); err != nil {
			return err
		}
		if err := checkEnvelope(env.ErrCode, env.ErrMsg); err != nil {
			return err
		}
		user = &env.Result
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("user lookup failed", "user_id", userID, "error", err)
		return nil, nil
	}
	return user, nil
}

// call issues an authenticated JSON request with the access token as a query
// parameter, the platform's convention for the /topapi surface.
func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.session.token(ctx, c)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	u := c.baseURL + path + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// get issues an authenticated GET with extra query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	token, err := c.session.token(ctx, c)
	if err != nil {
		return err
	}
	params.Set("access_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
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
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// withRetry runs fn with exponential backoff. An auth-expired error
// invalidates the cached token so the next attempt refreshes it first; other
// API rejections are permanent. Exhaustion surfaces as ErrRetryExhausted and
// fails only the single unit of work, never the whole run.
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
			logger.FromContext(ctx).Warn("source token expired, refreshing before retry",
				"operation", op, "attempt", attempt)
			return err
		}
		if isTransient(err) {
			logger.FromContext(ctx).Warn("transient source error",
				"operation", op, "attempt", attempt, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	metrics.RemoteCallDuration.WithLabelValues(metrics.TargetSource, op).Observe(time.Since(start).Seconds())
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.RemoteCalls.WithLabelValues(metrics.TargetSource, op, outcome).Inc()

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
	return fmt.Sprintf("source api error %d: %s", e.code, e.msg)
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("source http error %d: %s", e.status, e.body)
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
