package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultMetadataURL = "http://169.254.169.254/computeMetadata/v1/instance/service-accounts/default/token"

// TokenSource yields an IAM token for SpeechKit calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token fixed by configuration.
type StaticToken string

// Token returns the configured token.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("speech token is empty")
	}
	return string(t), nil
}

// MetadataTokenSource asks the cloud metadata service for the service account
// token on every call. The host rotates the token, so nothing is cached.
type MetadataTokenSource struct {
	url        string
	httpClient *http.Client
}

// NewMetadataTokenSource creates a token source for the given metadata endpoint.
func NewMetadataTokenSource(url string, httpClient *http.Client) *MetadataTokenSource {
	if url == "" {
		url = defaultMetadataURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Second}
	}
	return &MetadataTokenSource{url: url, httpClient: httpClient}
}

type metadataToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Token fetches a fresh IAM token.
func (m *MetadataTokenSource) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch metadata token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read metadata token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata token status %d", resp.StatusCode)
	}

	var tok metadataToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parse metadata token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("metadata token is empty")
	}
	return tok.AccessToken, nil
}
