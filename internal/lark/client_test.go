package lark

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientAccessTokenCached(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v3/app_access_token/internal", r.URL.Path)

		var req tokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "app-id", req.AppID)
		assert.Equal(t, "app-secret", req.AppSecret)

		tokenCalls++
		json.NewEncoder(w).Encode(tokenResponse{AppAccessToken: "tok-1", Expire: 7200}) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", zap.NewNop())

	token, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// Second call is served from the cache.
	token, err = client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, tokenCalls)
}

func TestClientAccessTokenExpiredRefetches(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		// Expiry shorter than the refresh buffer, so the token is never
		// considered fresh.
		json.NewEncoder(w).Encode(tokenResponse{AppAccessToken: "tok", Expire: 60}) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", zap.NewNop())

	_, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tokenCalls)
}

type memoryTokenStore struct {
	values map[string][]byte
}

func (s *memoryTokenStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(raw, dest)
}

func (s *memoryTokenStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.values == nil {
		s.values = map[string][]byte{}
	}
	s.values[key] = raw
	return nil
}

func TestClientAccessTokenSharedThroughStore(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(tokenResponse{AppAccessToken: "tok-1", Expire: 7200}) //nolint:errcheck
	}))
	defer srv.Close()

	store := &memoryTokenStore{}

	first := NewClient(srv.URL, "app-id", "app-secret", zap.NewNop())
	first.UseTokenStore(store)
	_, err := first.AccessToken(context.Background())
	require.NoError(t, err)

	// A fresh client reuses the persisted token without a new exchange.
	second := NewClient(srv.URL, "app-id", "app-secret", zap.NewNop())
	second.UseTokenStore(store)
	token, err := second.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, tokenCalls)
}

func TestClientAccessTokenAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{Code: 99991663, Msg: "app secret invalid"}) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "bad-secret", zap.NewNop())

	_, err := client.AccessToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "99991663")
}

func TestClientCreateRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v3/app_access_token/internal" {
			json.NewEncoder(w).Encode(tokenResponse{AppAccessToken: "tok-1", Expire: 7200}) //nolint:errcheck
			return
		}

		require.Equal(t, "/bitable/v1/apps/base-token/tables/tbl123/records", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var req recordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Nguyen Van A", req.Fields["Full Name"])

		json.NewEncoder(w).Encode(recordResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", zap.NewNop())

	err := client.CreateRecord(context.Background(), "base-token", "tbl123", map[string]interface{}{
		"Full Name": "Nguyen Van A",
	})
	require.NoError(t, err)
}

func TestClientCreateRecordAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v3/app_access_token/internal" {
			json.NewEncoder(w).Encode(tokenResponse{AppAccessToken: "tok-1", Expire: 7200}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(recordResponse{Code: 1254045, Msg: "table not found"}) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", zap.NewNop())

	err := client.CreateRecord(context.Background(), "base-token", "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table not found")
}
