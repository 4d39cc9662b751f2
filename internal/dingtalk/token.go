package dingtalk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// session caches the access token for the client. Tokens are refreshed
// shortly before expiry and invalidated when the platform rejects one
// mid-flight.
type session struct {
	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

type tokenEnvelope struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// token returns a valid access token, fetching a fresh one when the cached
// token is missing or within the refresh margin of expiry.
func (s *session) token(ctx context.Context, c *Client) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.expiry.Add(-tokenRefreshMargin)) {
		return s.accessToken, nil
	}

	params := url.Values{}
	params.Set("appkey", c.appKey)
	params.Set("appsecret", c.appSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathToken+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch source access token: %w", err)
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
	if env.ErrCode != 0 {
		return "", &apiError{code: env.ErrCode, msg: env.ErrMsg}
	}

	ttl := time.Duration(env.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	s.accessToken = env.AccessToken
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
