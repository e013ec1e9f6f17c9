package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeRemote struct {
	*httptest.Server

	mu            sync.Mutex
	hits          int
	lastAuth      string
	lastCreate    map[string]string
	lastAudio     map[string]string
	lastAudioFile string
	lastSpeech    map[string]string
	statusSeq     []string
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	f := &fakeRemote{}

	mux := http.NewServeMux()
	mux.HandleFunc("/videos", f.handleCreate)
	mux.HandleFunc("/videos/", f.handleVideoByID)
	mux.HandleFunc("/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.captureAudioForm(r)
		f.writeObject(w, map[string]any{"text": "hello world"})
	})
	mux.HandleFunc("/audio/translations", func(w http.ResponseWriter, r *http.Request) {
		f.captureAudioForm(r)
		f.writeObject(w, map[string]any{"text": "hello in english"})
	})
	mux.HandleFunc("/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.lastSpeech = payload
		f.mu.Unlock()
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3 fake mp3"))
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits++
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeRemote) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fields := map[string]string{}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	f.mu.Lock()
	f.lastCreate = fields
	f.mu.Unlock()
	f.writeObject(w, map[string]any{"id": "video_123", "status": "queued", "model": fields["model"]})
}

func (f *fakeRemote) captureAudioForm(r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return
	}
	fields := map[string]string{}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	filename := ""
	if parts := r.MultipartForm.File["file"]; len(parts) > 0 {
		filename = parts[0].Filename
	}
	f.mu.Lock()
	f.lastAudio = fields
	f.lastAudioFile = filename
	f.mu.Unlock()
}

func (f *fakeRemote) handleVideoByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/videos/")
	parts := strings.Split(rest, "/")
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		f.writeObject(w, map[string]any{"id": id, "status": f.nextStatus()})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		f.writeObject(w, map[string]any{"id": id, "deleted": true})
	case len(parts) == 2 && parts[1] == "remix" && r.Method == http.MethodPost:
		f.writeObject(w, map[string]any{"id": "video_456", "status": "completed", "remixed_from_video_id": id})
	case len(parts) == 2 && parts[1] == "content" && r.Method == http.MethodGet:
		w.Write([]byte("mp4-bytes"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// setStatusSequence queues the statuses served by successive retrieves; once
// drained, retrieves report "completed".
func (f *fakeRemote) setStatusSequence(statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusSeq = statuses
}

func (f *fakeRemote) nextStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statusSeq) == 0 {
		return "completed"
	}
	status := f.statusSeq[0]
	f.statusSeq = f.statusSeq[1:]
	return status
}

func (f *fakeRemote) authHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *fakeRemote) createField(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCreate[key]
}

func (f *fakeRemote) audioField(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAudio[key]
}

func (f *fakeRemote) audioFilename() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAudioFile
}

func (f *fakeRemote) speechField(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSpeech[key]
}

func (f *fakeRemote) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *fakeRemote) writeObject(w http.ResponseWriter, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

type cliEnv struct {
	baseDir    string
	configPath string
	jobsDir    string
	outputDir  string
	credsFile  string
	remote     *fakeRemote
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENAI_API_KEY", "test-key")

	remote := newFakeRemote(t)
	env := &cliEnv{
		baseDir:    base,
		configPath: filepath.Join(homeDir, ".config", "reel", "config.toml"),
		jobsDir:    filepath.Join(base, "jobs"),
		outputDir:  filepath.Join(base, "output"),
		credsFile:  filepath.Join(base, "config", "config.json"),
		remote:     remote,
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeCLIConfig(t, env)
	return env
}

func writeCLIConfig(t *testing.T, env *cliEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
jobs_dir = %q
output_dir = %q
credentials_file = %q

[api]
base_url = %q

[poll]
interval = 1
timeout = 5

[logging]
level = "error"
`, env.jobsDir, env.outputDir, env.credsFile, env.remote.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, env, "", args...)
}

func runCLIWithInput(t *testing.T, env *cliEnv, input string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// decodeErrorEnvelope parses the {"error":{"type","message"}} shape failed
// commands print to stdout.
func decodeErrorEnvelope(t *testing.T, output string) (string, string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeCLIJSON(t, output, &envelope)
	return envelope.Error.Type, envelope.Error.Message
}

func decodeCLIJSON(t *testing.T, output string, target any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), target); err != nil {
		t.Fatalf("failed to decode CLI output %q: %v", output, err)
	}
}

func jobFiles(t *testing.T, env *cliEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(env.jobsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read jobs dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		// The registry keeps a lock file alongside the snapshots.
		if strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	return names
}

func writeSampleAudio(t *testing.T, env *cliEnv, name string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, name)
	if err := os.WriteFile(path, []byte("RIFF fake audio"), 0o644); err != nil {
		t.Fatalf("write sample audio: %v", err)
	}
	return path
}
