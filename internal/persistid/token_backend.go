package persistid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"beacon/internal/api"
)

// TokenBackend stores the identifier server side, keyed by an opaque token
// the client retains. It speaks to the daemon's /identity-token endpoints.
type TokenBackend struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTokenBackend builds a backend against the daemon at baseURL using the
// given token. A nil client gets a short default timeout.
func NewTokenBackend(baseURL, token string, client *http.Client) *TokenBackend {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &TokenBackend{baseURL: baseURL, token: token, client: client}
}

func (b *TokenBackend) Name() string { return "token" }

func (b *TokenBackend) Available() bool {
	return b.baseURL != "" && b.token != ""
}

func (b *TokenBackend) Read(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/identity-token", nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set(api.TokenHeader, b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return "", ErrAbsent
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token lookup returned %s", resp.Status)
	}

	var payload api.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.VisitorID == "" {
		return "", ErrAbsent
	}
	return payload.VisitorID, nil
}

func (b *TokenBackend) Write(ctx context.Context, value string) error {
	body, err := json.Marshal(api.TokenRequest{Token: b.token, VisitorID: value})
	if err != nil {
		return fmt.Errorf("encode token payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/identity-token", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token store returned %s", resp.Status)
	}
	return nil
}
