package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// session caches the tenant access token for the client. Tokens are
// refreshed shortly before expiry and invalidated when the platform rejects
// one mid-flight.
type session struct {
	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenEnvelope struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"`
}

// token returns a valid tenant access token, fetching a fresh one when the
// cached token is missing or within the refresh margin of expiry.
func (s *session) token(ctx context.Context, c *Client) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.expiry.Add(-tokenRefreshMargin)) {
		return s.accessToken, nil
	}

	payload, err := json.Marshal(tokenRequest{AppID: c.appID, AppSecret: c.appSecret})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathTenantToken, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch destination access token: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &httpError{status: resp.StatusCode, body: truncate(data)}
	}

	var env tokenEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if env.Code != 0 {
		return "", &apiError{code: env.Code, msg: env.Msg}
	}

	ttl := time.Duration(env.Expire) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	s.accessToken = env.TenantAccessToken
	s.expiry = time.Now().Add(ttl)
	return s.accessToken, nil
}

// invalidate drops the cached token so the next call fetches a new one.
func (s *session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.expiry = time.Time{}
}
