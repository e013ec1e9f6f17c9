package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reel/internal/credentials"
	"reel/internal/logging"
	"reel/internal/services"
)

const (
	// DefaultBaseURL is the production OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultTranscribeModel = "gpt-4o-transcribe"
	defaultTranslateModel  = "whisper-1"
	defaultSpeechModel     = "gpt-4o-mini-tts"
	defaultVoice           = "alloy"

	defaultTimeout = 60 * time.Second
	errorBodyLimit = 4096
)

// Client calls the audio endpoints. Safe for concurrent use.
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

// WithTimeout replaces the default request timeout.
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
			c.logger = logging.NewComponentLogger(logger, "audio")
		}
	}
}

// NewClient constructs an audio API client that resolves its key from creds
// at call time.
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

// TranscriptionRequest describes an audio file to transcribe in its spoken
// language. Language is an optional ISO 639-1 hint.
type TranscriptionRequest struct {
	FilePath       string
	Model          string
	Language       string
	ResponseFormat string
}

// TranslationRequest describes an audio file to translate into English.
type TranslationRequest struct {
	FilePath       string
	Model          string
	ResponseFormat string
}

// SpeechRequest describes text to synthesize. Instructions optionally steer
// delivery, such as tone or pacing.
type SpeechRequest struct {
	Text         string
	Model        string
	Voice        string
	Instructions string
}

// Result is a transcription or translation response. Text is the convenience
// field; Raw holds the decoded JSON object, or the body verbatim when the
// endpoint answered with plain text (srt, vtt, and friends).
type Result struct {
	Text string
	Raw  any
}

// Transcribe uploads an audio file and returns its transcript.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) (Result, error) {
	const op = "audio transcribe"

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = defaultTranscribeModel
	}
	fields := []field{{"model", model}}
	if language := strings.TrimSpace(req.Language); language != "" {
		fields = append(fields, field{"language", language})
	}
	if format := strings.TrimSpace(req.ResponseFormat); format != "" {
		fields = append(fields, field{"response_format", format})
	}
	return c.postAudioFile(ctx, op, "transcriptions", req.FilePath, fields)
}

// Translate uploads an audio file and returns its English translation.
func (c *Client) Translate(ctx context.Context, req TranslationRequest) (Result, error) {
	const op = "audio translate"

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = defaultTranslateModel
	}
	fields := []field{{"model", model}}
	if format := strings.TrimSpace(req.ResponseFormat); format != "" {
		fields = append(fields, field{"response_format", format})
	}
	return c.postAudioFile(ctx, op, "translations", req.FilePath, fields)
}

// Speech synthesizes req.Text and streams the audio into w, returning the
// byte count written.
func (c *Client) Speech(ctx context.Context, req SpeechRequest, w io.Writer) (int64, error) {
	const op = "audio speech"

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return 0, services.Wrap(services.ErrInvalidArgument, op, "input text required", nil)
	}
	apiKey, err := c.resolveAPIKey(op)
	if err != nil {
		return 0, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = defaultSpeechModel
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = defaultVoice
	}
	body := map[string]string{
		"model": model,
		"voice": voice,
		"input": text,
	}
	if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
		body["instructions"] = instructions
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "encode payload", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "audio", "speech")
	if err != nil {
		return 0, services.Wrap(services.ErrInvalidArgument, op, "build endpoint", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "build request", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(request)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return 0, remoteError(op, resp.StatusCode, errBody)
	}
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, services.Wrap(services.ErrIO, op, "stream audio", err)
	}
	return written, nil
}

// SpeechToFile synthesizes req.Text into path, creating parent directories
// as needed. A partial file left by a failed stream is removed.
func (c *Client) SpeechToFile(ctx context.Context, req SpeechRequest, path string) (int64, error) {
	const op = "audio speech"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, services.Wrap(services.ErrIO, op, "create output directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, op, "create output file", err)
	}
	written, err := c.Speech(ctx, req, file)
	if err != nil {
		file.Close()
		os.Remove(path)
		return 0, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return 0, services.Wrap(services.ErrIO, op, "close output file", err)
	}
	c.logger.Debug("speech synthesized",
		logging.String("path", path),
		logging.Int64("bytes", written))
	return written, nil
}

type field struct {
	name  string
	value string
}

func (c *Client) postAudioFile(ctx context.Context, op, endpoint, filePath string, fields []field) (Result, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return Result{}, services.Wrap(services.ErrInvalidArgument, op, "audio file required", nil)
	}
	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "open audio file", err)
	}
	defer file.Close()

	apiKey, err := c.resolveAPIKey(op)
	if err != nil {
		return Result{}, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return Result{}, services.Wrap(services.ErrIO, op, "write "+f.name+" field", err)
		}
	}
	part, err := createAudioPart(writer, filePath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "create file part", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "copy audio file", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "close multipart writer", err)
	}

	endpointURL, err := url.JoinPath(c.baseURL, "audio", endpoint)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInvalidArgument, op, "build endpoint", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "build request", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(request)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "execute request", err)
	}
	defer resp.Body.Close()
	return handleTextResponse(op, resp)
}

// handleTextResponse branches on the response content type the way the
// endpoints behave: JSON for the default format, plain text for srt, vtt,
// and text formats.
func handleTextResponse(op string, resp *http.Response) (Result, error) {
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, op, "read response", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, remoteError(op, resp.StatusCode, payload)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		decoder := json.NewDecoder(bytes.NewReader(payload))
		decoder.UseNumber()
		var data map[string]any
		if err := decoder.Decode(&data); err != nil {
			return Result{}, services.Wrap(services.ErrIO, op, "decode response", err)
		}
		text, _ := data["text"].(string)
		return Result{Text: text, Raw: data}, nil
	}
	text := string(payload)
	return Result{Text: text, Raw: text}, nil
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

// createAudioPart attaches the upload with a guessed content type so the
// endpoint sees audio/mpeg for an .mp3 rather than a generic octet stream.
func createAudioPart(writer *multipart.Writer, path string) (io.Writer, error) {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(path))))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
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
