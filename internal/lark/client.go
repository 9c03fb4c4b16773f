// Package lark is a minimal client for the Lark Base (Bitable) open API,
// covering tenant token exchange and record creation.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// tokens are refreshed this long before the server-reported expiry.
const tokenExpiryBuffer = 5 * time.Minute

// tokenCacheKey holds the shared token across restarts when a TokenStore is
// attached.
const tokenCacheKey = "lark:app_access_token"

// TokenStore persists the app access token between process restarts. Any
// error on Get is treated as a miss.
type TokenStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cachedToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// Client talks to the Lark open API on behalf of one app.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	logger     *zap.Logger
	store      TokenStore

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient constructs a Client. baseURL is the open-API root without a
// trailing slash, e.g. https://open.larksuite.com/open-apis.
func NewClient(baseURL, appID, appSecret string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// UseTokenStore attaches a persistent token cache, typically Redis.
func (c *Client) UseTokenStore(store TokenStore) {
	c.store = store
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenResponse struct {
	Code           int    `json:"code"`
	Msg            string `json:"msg"`
	AppAccessToken string `json:"app_access_token"`
	Expire         int    `json:"expire"`
}

type recordRequest struct {
	Fields map[string]interface{} `json:"fields"`
}

type recordResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// AccessToken returns a valid app access token, exchanging credentials with
// the token endpoint when the cached one is missing or close to expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	if c.store != nil {
		var cached cachedToken
		if err := c.store.Get(ctx, tokenCacheKey, &cached); err == nil &&
			cached.Token != "" && time.Now().Before(cached.Expiry) {
			c.accessToken = cached.Token
			c.tokenExpiry = cached.Expiry
			return c.accessToken, nil
		}
	}

	body, err := json.Marshal(tokenRequest{AppID: c.appID, AppSecret: c.appSecret})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	url := c.baseURL + "/auth/v3/app_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request app access token: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Code != 0 {
		return "", fmt.Errorf("token exchange failed: code %d: %s", tr.Code, tr.Msg)
	}

	c.accessToken = tr.AppAccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.Expire)*time.Second - tokenExpiryBuffer)

	if c.store != nil && time.Now().Before(c.tokenExpiry) {
		if err := c.store.Set(ctx, tokenCacheKey, cachedToken{Token: c.accessToken, Expiry: c.tokenExpiry}, time.Until(c.tokenExpiry)); err != nil {
			c.logger.Warn("failed to persist lark token", zap.Error(err))
		}
	}

	c.logger.Debug("refreshed lark app access token",
		zap.Time("expiry", c.tokenExpiry))

	return c.accessToken, nil
}

// CreateRecord appends one row to a Bitable table. A non-zero response code is
// returned as an error.
func (c *Client) CreateRecord(ctx context.Context, baseToken, tableID string, fields map[string]interface{}) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(recordRequest{Fields: fields})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	url := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records", c.baseURL, baseToken, tableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	defer resp.Body.Close()

	var rr recordResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decode record response: %w", err)
	}
	if rr.Code != 0 {
		return fmt.Errorf("create record failed: code %d: %s", rr.Code, rr.Msg)
	}
	return nil
}
