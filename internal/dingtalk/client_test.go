package dingtalk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncline-io/approvalsync/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		AppKey:     "key",
		AppSecret:  "secret",
		BaseURL:    srv.URL,
		MaxRetries: 1,
		Timeout:    5 * time.Second,
	})
	return c, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func tokenResponse(token string) map[string]any {
	return map[string]any{"errcode": 0, "errmsg": "ok", "access_token": token, "expires_in": 7200}
}

func TestListInstances_ParsesPage(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.Equal(t, "key", r.URL.Query().Get("appkey"))
		assert.Equal(t, "secret", r.URL.Query().Get("appsecret"))
		writeJSON(w, tokenResponse("tok"))
	})
	mux.HandleFunc(pathInstanceList, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1700000000000", body["start_time"])
		assert.Equal(t, float64(10), body["size"])
		writeJSON(w, map[string]any{
			"errcode": 0,
			"result": map[string]any{
				"list": []map[string]any{
					{"process_instance_id": "ins-1", "title": "expense", "status": "RUNNING"},
					{"process_instance_id": "ins-2", "title": "leave", "status": "COMPLETED"},
				},
				"has_more":    true,
				"next_cursor": 10,
			},
		})
	})

	c, _ := newTestClient(t, mux)
	page, err := c.ListInstances(context.Background(), domain.ListQuery{
		Start: time.UnixMilli(1700000000000),
		End:   time.UnixMilli(1700003600000),
		Size:  10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "ins-1", page.Items[0].InstanceID)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(10), page.NextCursor)
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestListInstances_TokenReusedAcrossCalls(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		writeJSON(w, tokenResponse("tok"))
	})
	mux.HandleFunc(pathInstanceList, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"errcode": 0, "result": map[string]any{"list": []any{}, "has_more": false}})
	})

	c, _ := newTestClient(t, mux)
	q := domain.ListQuery{Start: time.Now().Add(-time.Hour), End: time.Now(), Size: 20}
	_, err := c.ListInstances(context.Background(), q)
	require.NoError(t, err)
	_, err = c.ListInstances(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestGetInstanceDetail_RefreshesExpiredToken(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		n := tokenCalls.Add(1)
		writeJSON(w, tokenResponse(fmt.Sprintf("tok-%d", n)))
	})
	mux.HandleFunc(pathInstanceDetail, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") == "tok-1" {
			writeJSON(w, map[string]any{"errcode": errCodeAuthExpired, "errmsg": "token expired"})
			return
		}
		writeJSON(w, map[string]any{
			"errcode": 0,
			"process_instance": map[string]any{
				"title":  "expense",
				"status": "COMPLETED",
			},
		})
	})

	c, _ := newTestClient(t, mux)
	detail, err := c.GetInstanceDetail(context.Background(), "ins-1")
	require.NoError(t, err)
	assert.Equal(t, "expense", detail.Title)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestListInstances_RetryExhaustion(t *testing.T) {
	var listCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tokenResponse("tok"))
	})
	mux.HandleFunc(pathInstanceList, func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.ListInstances(context.Background(), domain.ListQuery{Start: time.Now().Add(-time.Hour), End: time.Now(), Size: 20})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetryExhausted)
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestGetInstanceDetail_APIRejectionIsNotRetried(t *testing.T) {
	var detailCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tokenResponse("tok"))
	})
	mux.HandleFunc(pathInstanceDetail, func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		writeJSON(w, map[string]any{"errcode": 88001, "errmsg": "no such instance"})
	})

	c, _ := newTestClient(t, mux)
	_, err := c.GetInstanceDetail(context.Background(), "missing")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRetryExhausted)
	assert.Contains(t, err.Error(), "no such instance")
	assert.Equal(t, int32(1), detailCalls.Load())
}

func TestGetUserInfo_SoftFailsOnRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tokenResponse("tok"))
	})
	mux.HandleFunc(pathUserGet, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"errcode": 60121, "errmsg": "user not found"})
	})

	c, _ := newTestClient(t, mux)
	user, err := c.GetUserInfo(context.Background(), "u-404")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGetUserInfo_ReturnsUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tokenResponse("tok"))
	})
	mux.HandleFunc(pathUserGet, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"errcode": 0, "result": map[string]any{"userid": "u-1", "name": "Alice"}})
	})

	c, _ := newTestClient(t, mux)
	user, err := c.GetUserInfo(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Name)
}

func TestTokenFetchFailureSurfaces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"errcode": 40089, "errmsg": "invalid credentials"})
	})

	c, _ := newTestClient(t, mux)
	_, err := c.GetInstanceDetail(context.Background(), "ins-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}
