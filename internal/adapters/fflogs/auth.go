package fflogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// expiryMargin makes tokens refresh 5 minutes before the server-side expiry so
// an in-flight query never races the cutoff.
const expiryMargin = 5 * time.Minute

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenStore caches a client-credentials bearer token. The mutex serialises
// refreshes: concurrent callers wait for the single in-flight exchange instead
// of each hitting the token endpoint.
type TokenStore struct {
	clientID     string
	clientSecret string
	tokenURL     string
	http         *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time
}

func NewTokenStore(clientID, clientSecret, tokenURL string, httpClient *http.Client) *TokenStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenStore{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		http:         httpClient,
		now:          time.Now,
	}
}

func (t *TokenStore) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiry) {
		return t.token, nil
	}

	log.Printf("fflogs: refreshing access token")
	if err := t.refreshLocked(ctx); err != nil {
		return "", err
	}
	return t.token, nil
}

// Invalidate forces the next Token call to refresh. Called on 401s.
func (t *TokenStore) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expiry = time.Time{}
	t.mu.Unlock()
}

func (t *TokenStore) refreshLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.clientID, t.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("fflogs token exchange: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		t.token = ""
		t.expiry = time.Time{}
		return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var tr tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return fmt.Errorf("fflogs token decode: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("fflogs token exchange returned empty access_token")
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	t.token = tr.AccessToken
	t.expiry = t.now().Add(time.Duration(expiresIn)*time.Second - expiryMargin)
	return nil
}
