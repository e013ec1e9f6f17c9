package audio_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reel/internal/credentials"
	"reel/internal/services"
	"reel/internal/services/audio"
)

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestTranscribeSendsModelAndFile(t *testing.T) {
	// Pin the extension mapping so the assertion does not depend on the
	// host's mime.types file.
	if err := mime.AddExtensionType(".mp3", "audio/mpeg"); err != nil {
		t.Fatalf("register extension: %v", err)
	}
	samplePath := writeSample(t, "sample.mp3")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/audio/transcriptions" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "gpt-4o-transcribe" {
			t.Fatalf("expected default model, got %q", got)
		}
		if got := r.FormValue("language"); got != "es" {
			t.Fatalf("expected language es, got %q", got)
		}
		files := r.MultipartForm.File["file"]
		if len(files) != 1 {
			t.Fatalf("expected one file part, got %d", len(files))
		}
		if files[0].Filename != "sample.mp3" {
			t.Fatalf("unexpected filename %q", files[0].Filename)
		}
		if got := files[0].Header.Get("Content-Type"); got != "audio/mpeg" {
			t.Fatalf("expected guessed content type, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"hola mundo","usage":{"seconds":3}}`)
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory("test-key"), audio.WithBaseURL(server.URL))
	result, err := client.Transcribe(context.Background(), audio.TranscriptionRequest{
		FilePath: samplePath,
		Language: "es",
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Text != "hola mundo" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	raw, ok := result.Raw.(map[string]any)
	if !ok {
		t.Fatalf("expected raw JSON object, got %T", result.Raw)
	}
	if _, ok := raw["usage"]; !ok {
		t.Fatalf("expected usage to survive in raw payload, got %v", raw)
	}
}

func TestTranscribeUnknownExtensionFallsBackToOctetStream(t *testing.T) {
	samplePath := writeSample(t, "capture.rawdump")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		files := r.MultipartForm.File["file"]
		if len(files) != 1 {
			t.Fatalf("expected one file part, got %d", len(files))
		}
		if got := files[0].Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Fatalf("expected octet-stream fallback, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory("test-key"), audio.WithBaseURL(server.URL))
	if _, err := client.Transcribe(context.Background(), audio.TranscriptionRequest{FilePath: samplePath}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
}

func TestTranslateReturnsPlainTextVerbatim(t *testing.T) {
	samplePath := writeSample(t, "clip.wav")
	const srt = "1\n00:00:00,000 --> 00:00:02,000\nHello there\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/translations" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Fatalf("expected default model whisper-1, got %q", got)
		}
		if got := r.FormValue("response_format"); got != "srt" {
			t.Fatalf("expected response_format srt, got %q", got)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, srt)
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory("test-key"), audio.WithBaseURL(server.URL))
	result, err := client.Translate(context.Background(), audio.TranslationRequest{
		FilePath:       samplePath,
		ResponseFormat: "srt",
	})
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if result.Text != srt {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if raw, ok := result.Raw.(string); !ok || raw != srt {
		t.Fatalf("expected raw to hold the body verbatim, got %T %v", result.Raw, result.Raw)
	}
}

func TestTranscribeMissingFileFailsBeforeAnyRequest(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	// The file is checked before credentials, so a missing file reports an
	// io error even when no key is stored.
	client := audio.NewClient(credentials.NewMemory(""), audio.WithBaseURL(server.URL))
	_, err := client.Transcribe(context.Background(), audio.TranscriptionRequest{
		FilePath: filepath.Join(t.TempDir(), "absent.mp3"),
	})
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestTranscribeWithoutKeyFailsBeforeAnyRequest(t *testing.T) {
	samplePath := writeSample(t, "clip.wav")
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory(""), audio.WithBaseURL(server.URL))
	_, err := client.Transcribe(context.Background(), audio.TranscriptionRequest{FilePath: samplePath})
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestSpeechStreamsAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/audio/speech" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode speech payload: %v", err)
		}
		want := map[string]string{
			"model":        "gpt-4o-mini-tts",
			"voice":        "marin",
			"input":        "Hello there",
			"instructions": "cheerfully",
		}
		for key, value := range want {
			if payload[key] != value {
				t.Fatalf("payload %s: expected %q, got %q", key, value, payload[key])
			}
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory("test-key"), audio.WithBaseURL(server.URL))
	var buf bytes.Buffer
	written, err := client.Speech(context.Background(), audio.SpeechRequest{
		Text:         "Hello there",
		Voice:        "marin",
		Instructions: "cheerfully",
	}, &buf)
	if err != nil {
		t.Fatalf("Speech returned error: %v", err)
	}
	if written != int64(len("mp3-bytes")) || buf.String() != "mp3-bytes" {
		t.Fatalf("unexpected speech payload %q (%d bytes)", buf.String(), written)
	}
}

func TestSpeechRequiresText(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory("test-key"), audio.WithBaseURL(server.URL))
	var buf bytes.Buffer
	_, err := client.Speech(context.Background(), audio.SpeechRequest{Text: "  "}, &buf)
	if !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestSpeechToFileCleansUpOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"synthesis failed"}}`)
	}))
	defer server.Close()

	client := audio.NewClient(credentials.NewMemory("test-key"), audio.WithBaseURL(server.URL))
	path := filepath.Join(t.TempDir(), "speech.mp3")
	_, err := client.SpeechToFile(context.Background(), audio.SpeechRequest{Text: "Hello"}, path)
	var remote *services.RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected remote error with status 500, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial file to be removed, stat returned %v", statErr)
	}
}
