// Package speech talks to Yandex SpeechKit for synchronous recognition and
// synthesis of short Russian utterances.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSTTURL = "https://stt.api.cloud.yandex.net"
	defaultTTSURL = "https://tts.api.cloud.yandex.net"

	recognizePath  = "/speech/v1/stt:recognize"
	synthesizePath = "/speech/v1/tts:synthesize"

	// Fixed synthesis voice.
	Voice   = "ermil"
	Emotion = "good"
)

// APIError is an error reported by SpeechKit
type APIError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("speechkit %s: %d %s: %s", e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("speechkit %s: status %d", e.Op, e.Status)
}

// Config holds settings for the SpeechKit client
type Config struct {
	STTURL   string // If empty, uses https://stt.api.cloud.yandex.net
	TTSURL   string // If empty, uses https://tts.api.cloud.yandex.net
	FolderID string // Required only for user account tokens
	Language string // If empty, uses ru-RU
}

// Client recognizes and synthesizes speech
type Client struct {
	sttURL     string
	ttsURL     string
	folderID   string
	language   string
	tokens     TokenSource
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new SpeechKit client
func NewClient(cfg Config, tokens TokenSource, httpClient *http.Client, log *zap.Logger) *Client {
	sttURL := strings.TrimRight(cfg.STTURL, "/")
	if sttURL == "" {
		sttURL = defaultSTTURL
	}
	ttsURL := strings.TrimRight(cfg.TTSURL, "/")
	if ttsURL == "" {
		ttsURL = defaultTTSURL
	}
	language := cfg.Language
	if language == "" {
		language = "ru-RU"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		sttURL:     sttURL,
		ttsURL:     ttsURL,
		folderID:   cfg.FolderID,
		language:   language,
		tokens:     tokens,
		httpClient: httpClient,
		log:        log,
	}
}

type recognizeResponse struct {
	Result       *string `json:"result"`
	ErrorCode    string  `json:"error_code"`
	ErrorMessage string  `json:"error_message"`
}

type errorResponse struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// Recognize converts an OGG/Opus recording to text.
func (c *Client) Recognize(ctx context.Context, audio []byte) (string, error) {
	params := url.Values{}
	params.Set("lang", c.language)
	if c.folderID != "" {
		params.Set("folderId", c.folderID)
	}

	req, err := c.newRequest(ctx, c.sttURL+recognizePath+"?"+params.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	body, status, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var result recognizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if status != http.StatusOK {
			return "", &APIError{Op: "recognize", Status: status}
		}
		return "", fmt.Errorf("recognize: parse response: %w", err)
	}
	if status != http.StatusOK || result.ErrorCode != "" {
		return "", &APIError{Op: "recognize", Status: status, Code: result.ErrorCode, Message: result.ErrorMessage}
	}
	if result.Result == nil {
		return "", fmt.Errorf("recognize: response has no result")
	}

	text := strings.TrimSpace(*result.Result)
	c.log.Debug("speech recognized", zap.Int("audio_bytes", len(audio)), zap.String("text", text))
	return text, nil
}

// Synthesize renders text as OGG/Opus audio with the fixed voice and emotion.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", Voice)
	form.Set("emotion", Emotion)
	form.Set("lang", c.language)
	if c.folderID != "" {
		form.Set("folderId", c.folderID)
	}

	req, err := c.newRequest(ctx, c.ttsURL+synthesizePath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if status != http.StatusOK {
		apiErr := &APIError{Op: "synthesize", Status: status}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Code = er.ErrorCode
			apiErr.Message = er.ErrorMessage
		}
		return nil, apiErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("synthesize: empty audio")
	}

	c.log.Debug("speech synthesized", zap.Int("text_len", len(text)), zap.Int("audio_bytes", len(body)))
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, body io.Reader) (*http.Request, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("speech token source not configured")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get speech token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
