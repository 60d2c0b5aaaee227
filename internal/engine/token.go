package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"casegen/internal/common/errors"
)

// tokenEarlyRefresh is how long before expiry a cached token is discarded.
const tokenEarlyRefresh = 5 * time.Minute

// TokenResponse holds the response from the engine's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Authenticator fetches and caches OAuth2 client-credentials tokens for the
// remote engine. It is an explicitly constructed object rather than a
// process-wide singleton; the engine client owns one instance.
type Authenticator struct {
	authURL      string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewAuthenticator(authURL, clientID, clientSecret, scope string) *Authenticator {
	return &Authenticator{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// AccessToken returns a valid bearer token, reusing the cached one until
// five minutes before its expiry.
func (a *Authenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && a.tokenExpiry.After(time.Now().Add(tokenEarlyRefresh)) {
		return a.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)
	if a.scope != "" {
		data.Set("scope", a.scope)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", errors.NewAuthenticationError(fmt.Sprintf("failed to create token request: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", errors.NewExternalServiceError("engine-auth", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.NewAuthenticationError(
			fmt.Sprintf("token request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errors.NewAuthenticationError(fmt.Sprintf("failed to decode token response: %v", err))
	}

	a.accessToken = tokenResp.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return a.accessToken, nil
}

// Invalidate drops the cached token, forcing a refresh on next use.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accessToken = ""
	a.tokenExpiry = time.Time{}
}
