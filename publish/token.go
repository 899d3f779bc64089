package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"stoicbot/config"
)

// ErrCredentialRefresh means the long-lived token exchange failed. Callers
// treat it as a warning: the current token may still be valid.
var ErrCredentialRefresh = errors.New("access token refresh failed")

// TokenManager inspects and renews the long-lived access token. A refresh is
// attempted once the remaining lifetime drops below the configured threshold.
type TokenManager struct {
	client    *Client
	appID     string
	appSecret string
	threshold time.Duration
	now       func() time.Time
}

func NewTokenManager(client *Client, appID, appSecret string) *TokenManager {
	return &TokenManager{
		client:    client,
		appID:     appID,
		appSecret: appSecret,
		threshold: time.Duration(config.TokenRefreshThresholdDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// TokenInfo is what the debug endpoint reports about the current token.
type TokenInfo struct {
	Valid     bool
	ExpiresAt time.Time
	Scopes    []string
}

// Inspect asks the platform about the current token's validity and expiry.
func (t *TokenManager) Inspect(ctx context.Context) (*TokenInfo, error) {
	var result struct {
		Data struct {
			IsValid   bool     `json:"is_valid"`
			ExpiresAt int64    `json:"expires_at"`
			Scopes    []string `json:"scopes"`
		} `json:"data"`
	}
	path := "/debug_token?input_token=" + url.QueryEscape(t.client.accessToken)
	if err := t.client.getJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("token inspection: %w", err)
	}

	info := &TokenInfo{Valid: result.Data.IsValid, Scopes: result.Data.Scopes}
	if result.Data.ExpiresAt > 0 {
		info.ExpiresAt = time.Unix(result.Data.ExpiresAt, 0)
	}
	return info, nil
}

// Refresh exchanges the current token for a fresh long-lived one and swaps
// it into the client.
func (t *TokenManager) Refresh(ctx context.Context) (string, error) {
	if t.appID == "" || t.appSecret == "" {
		return "", fmt.Errorf("%w: app credentials not configured", ErrCredentialRefresh)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	path := "/oauth/access_token?grant_type=fb_exchange_token" +
		"&client_id=" + url.QueryEscape(t.appID) +
		"&client_secret=" + url.QueryEscape(t.appSecret) +
		"&fb_exchange_token=" + url.QueryEscape(t.client.accessToken)
	if err := t.client.getJSON(ctx, path, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialRefresh, err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("%w: exchange returned no token", ErrCredentialRefresh)
	}

	t.client.accessToken = result.AccessToken
	log.Printf("access token refreshed, expires in %s", time.Duration(result.ExpiresIn)*time.Second)
	return result.AccessToken, nil
}

// EnsureFresh refreshes the token when it is close to expiry. Failures are
// logged and swallowed: an expiring token might still carry the next post,
// so a refresh hiccup must not abort the pipeline.
func (t *TokenManager) EnsureFresh(ctx context.Context) {
	info, err := t.Inspect(ctx)
	if err != nil {
		log.Printf("warning: token inspection failed: %v", err)
		return
	}
	if !info.Valid {
		log.Printf("warning: access token reported invalid")
	}
	if info.ExpiresAt.IsZero() {
		// Tokens without an expiry never need an exchange.
		return
	}

	remaining := info.ExpiresAt.Sub(t.now())
	if remaining > t.threshold {
		return
	}

	log.Printf("access token expires in %s, refreshing", remaining.Round(time.Hour))
	if _, err := t.Refresh(ctx); err != nil {
		log.Printf("warning: %v", err)
	}
}
