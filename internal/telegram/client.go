package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"weatherbot/internal/upstream"
)

const defaultBaseURL = "https://api.telegram.org"

// ErrEmptyFilePath is returned when getFile succeeds without a downloadable path.
var ErrEmptyFilePath = errors.New("telegram file has no path")

// APIError is a Bot API response with ok=false
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Config holds settings for the Bot API client
type Config struct {
	Token   string
	BaseURL string // If empty, uses https://api.telegram.org
}

// Client provides the Bot API calls the bot needs
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new Bot API client
func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sendMessageRequest struct {
	ChatID          int64            `json:"chat_id"`
	Text            string           `json:"text"`
	ReplyParameters *ReplyParameters `json:"reply_parameters,omitempty"`
}

type getFileRequest struct {
	FileID string `json:"file_id"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) fileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
}

// SendMessage sends text to a chat as a reply to replyTo.
func (c *Client) SendMessage(ctx context.Context, chatID, replyTo int64, text string) error {
	reqBody := sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	}
	if replyTo != 0 {
		reqBody.ReplyParameters = &ReplyParameters{MessageID: replyTo}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if _, err := c.call(ctx, "sendMessage", "application/json", bytes.NewReader(jsonBody)); err != nil {
		return err
	}
	c.log.Debug("telegram message sent", zap.Int64("chat_id", chatID), zap.Int64("reply_to", replyTo))
	return nil
}

// SendVoice uploads an OGG/Opus voice note to a chat as a reply to replyTo.
func (c *Client) SendVoice(ctx context.Context, chatID, replyTo int64, voice []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if replyTo != 0 {
		params, err := json.Marshal(ReplyParameters{MessageID: replyTo})
		if err != nil {
			return fmt.Errorf("marshal reply parameters: %w", err)
		}
		if err := mw.WriteField("reply_parameters", string(params)); err != nil {
			return fmt.Errorf("write reply_parameters field: %w", err)
		}
	}

	fw, err := mw.CreateFormFile("voice", "voice.ogg")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(voice); err != nil {
		return fmt.Errorf("write voice data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	if _, err := c.call(ctx, "sendVoice", mw.FormDataContentType(), &buf); err != nil {
		return err
	}
	c.log.Debug("telegram voice sent", zap.Int64("chat_id", chatID), zap.Int64("reply_to", replyTo), zap.Int("bytes", len(voice)))
	return nil
}

// GetFile resolves a file_id to its server-side metadata.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	jsonBody, err := json.Marshal(getFileRequest{FileID: fileID})
	if err != nil {
		return File{}, fmt.Errorf("marshal request: %w", err)
	}

	raw, err := c.call(ctx, "getFile", "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return File{}, err
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("parse getFile result: %w", err)
	}
	return f, nil
}

// DownloadFile fetches the content of a file. The download is skipped when
// the metadata lookup fails.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if f.FilePath == "" {
		return nil, ErrEmptyFilePath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(f.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", upstream.StripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	c.log.Debug("telegram file downloaded", zap.String("file_path", f.FilePath), zap.Int("bytes", len(content)))
	return content, nil
}

func (c *Client) call(ctx context.Context, method, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: send request: %w", method, upstream.StripURL(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("telegram %s: parse response (status %d): %w", method, resp.StatusCode, err)
	}

	if !result.OK {
		code := result.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &APIError{Method: method, Code: code, Description: result.Description}
	}

	return result.Result, nil
}
