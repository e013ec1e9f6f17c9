package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"reel/internal/credentials"
	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/services"
)

const (
	// DefaultBaseURL is the production OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultTimeout = 60 * time.Second
	errorBodyLimit = 4096
)

// Client calls the video endpoints. The zero value is not usable; construct
// with NewClient. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	creds   credentials.Provider
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes a client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL overrides the default API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		}
	}
}

// WithTimeout replaces the default request timeout. Downloads of finished
// renders share this limit, so size it for the largest expected clip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithAPIKey pins a fixed key, bypassing the credential provider.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "sora")
		}
	}
}

// NewClient constructs a video API client that resolves its key from creds
// at call time, so a key stored after construction is picked up without a
// rebuild.
func NewClient(creds credentials.Provider, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRequest describes a new render. Prompt is required; every other
// field falls back to the API default when empty. Extra carries provider
// parameters this build does not model, sent as form fields verbatim.
type CreateRequest struct {
	Prompt         string
	Model          string
	Seconds        int
	Size           string
	InputReference string
	Extra          map[string]any
}

// Create submits a render job and returns its initial snapshot.
func (c *Client) Create(ctx context.Context, req CreateRequest) (job.Record, error) {
	const op = "sora create"

	apiKey, err := c.resolveAPIKey(op)
	if err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "prompt required", nil)
	}
	if req.Seconds != 0 && !ValidSeconds(req.Seconds) {
		return nil, services.Wrap(services.ErrInvalidArgument, op,
			fmt.Sprintf("seconds must be one of %s", secondsChoiceList()), nil)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, services.Wrap(services.ErrIO, op, "write prompt field", err)
	}
	if model := strings.TrimSpace(req.Model); model != "" {
		if err := writer.WriteField("model", model); err != nil {
			return nil, services.Wrap(services.ErrIO, op, "write model field", err)
		}
	}
	if req.Seconds != 0 {
		if err := writer.WriteField("seconds", strconv.Itoa(req.Seconds)); err != nil {
			return nil, services.Wrap(services.ErrIO, op, "write seconds field", err)
		}
	}
	if size := strings.TrimSpace(req.Size); size != "" {
		if err := writer.WriteField("size", size); err != nil {
			return nil, services.Wrap(services.ErrIO, op, "write size field", err)
		}
	}
	for _, name := range sortedExtraKeys(req.Extra) {
		value := req.Extra[name]
		if value == nil {
			continue
		}
		if err := writer.WriteField(name, stringifyExtra(value)); err != nil {
			return nil, services.Wrap(services.ErrIO, op, "write "+name+" field", err)
		}
	}
	if path := strings.TrimSpace(req.InputReference); path != "" {
		if err := attachInputReference(writer, path); err != nil {
			return nil, services.Wrap(services.ErrIO, op, "attach input reference", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrIO, op, "close multipart writer", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "videos")
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "build endpoint", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "build request", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+apiKey)

	record, err := c.do(op, request)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("render created",
		logging.String("video_id", record.ID()),
		logging.String("status", string(record.Status())))
	return record, nil
}

// Retrieve fetches the current snapshot for a render job.
func (c *Client) Retrieve(ctx context.Context, videoID string) (job.Record, error) {
	const op = "sora retrieve"
	return c.videoRequest(ctx, op, http.MethodGet, videoID)
}

// Remix submits a follow-up render derived from a finished job.
func (c *Client) Remix(ctx context.Context, videoID, prompt string) (job.Record, error) {
	const op = "sora remix"

	apiKey, err := c.resolveAPIKey(op)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(videoID)
	if id == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "video id required", nil)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "prompt required", nil)
	}

	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "encode payload", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "videos", id, "remix")
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "build endpoint", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "build request", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+apiKey)

	record, err := c.do(op, request)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("remix created",
		logging.String("source_id", id),
		logging.String("video_id", record.ID()))
	return record, nil
}

// Delete removes a render job upstream and returns the deletion receipt.
func (c *Client) Delete(ctx context.Context, videoID string) (job.Record, error) {
	const op = "sora delete"
	return c.videoRequest(ctx, op, http.MethodDelete, videoID)
}

// DownloadContent streams the rendered clip for a completed job into w and
// returns the byte count written.
func (c *Client) DownloadContent(ctx context.Context, videoID string, w io.Writer) (int64, error) {
	const op = "sora download"

	apiKey, err := c.resolveAPIKey(op)
	if err != nil {
		return 0, err
	}
	id := strings.TrimSpace(videoID)
	if id == "" {
		return 0, services.Wrap(services.ErrInvalidArgument, op, "video id required", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, "videos", id, "content")
	if err != nil {
		return 0, services.Wrap(services.ErrInvalidArgument, op, "build endpoint", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "build request", err)
	}
	request.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(request)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return 0, remoteError(op, resp.StatusCode, payload)
	}
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, services.Wrap(services.ErrIO, op, "stream content", err)
	}
	return written, nil
}

// DownloadToFile streams the rendered clip into path, creating parent
// directories as needed. A partial file left by a failed stream is removed.
func (c *Client) DownloadToFile(ctx context.Context, videoID, path string) (int64, error) {
	const op = "sora download"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, services.Wrap(services.ErrIO, op, "create output directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "create output file", err)
	}
	written, err := c.DownloadContent(ctx, videoID, file)
	if err != nil {
		file.Close()
		os.Remove(path)
		return 0, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return 0, services.Wrap(services.ErrIO, op, "close output file", err)
	}
	c.logger.Debug("content downloaded",
		logging.String("video_id", strings.TrimSpace(videoID)),
		logging.String("path", path),
		logging.Int64("bytes", written))
	return written, nil
}

// videoRequest covers the body-less verbs that address a single job.
func (c *Client) videoRequest(ctx context.Context, op, method, videoID string) (job.Record, error) {
	apiKey, err := c.resolveAPIKey(op)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(videoID)
	if id == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "video id required", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, "videos", id)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "build endpoint", err)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "build request", err)
	}
	request.Header.Set("Authorization", "Bearer "+apiKey)
	return c.do(op, request)
}

func (c *Client) do(op string, request *http.Request) (job.Record, error) {
	resp, err := c.http.Do(request)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "execute request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "read response", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, remoteError(op, resp.StatusCode, payload)
	}
	record, err := job.Decode(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, op, "decode response", err)
	}
	return record, nil
}

func (c *Client) resolveAPIKey(op string) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	if c.creds != nil {
		key, err := c.creds.APIKey()
		if err != nil {
			return "", err
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", services.Wrap(services.ErrAuth, op, "api key required", nil)
}

func attachInputReference(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// CreateFormFile marks the part application/octet-stream, which is what
	// the endpoint expects regardless of the reference's real type.
	part, err := writer.CreateFormFile("input_reference", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

func remoteError(op string, statusCode int, body []byte) error {
	if len(body) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return &services.RemoteError{
		Op:         op,
		StatusCode: statusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

func sortedExtraKeys(extra map[string]any) []string {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for key := range extra {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func stringifyExtra(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}
