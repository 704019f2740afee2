// Package translate provides a minimal HTTP client for a machine
// translation API. The API key stays server-side; clients reach the
// service through the /translate endpoint only. On any failure the caller
// keeps the original text.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

var ErrNotConfigured = errors.New("translate: endpoint not configured")

// Client is a lightweight translation API client.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client from config.
func New(cfg config.TranslateConfig) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Translate returns the text translated into targetLanguage. sourceLanguage
// may be empty for auto-detection.
func (c *Client) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (string, error) {
	if c.endpoint == "" {
		return "", ErrNotConfigured
	}

	reqBody := map[string]any{
		"q":      text,
		"target": targetLanguage,
	}
	if sourceLanguage != "" {
		reqBody["source"] = sourceLanguage
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("translate: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: unexpected status %d", resp.StatusCode)
	}

	var decoded struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if decoded.TranslatedText == "" {
		return "", errors.New("translate: empty response")
	}
	return decoded.TranslatedText, nil
}
