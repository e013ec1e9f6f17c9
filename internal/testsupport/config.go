package testsupport

import (
	"path/filepath"
	"testing"

	"reel/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.JobsDir = filepath.Join(base, "jobs")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.CredentialsFile = filepath.Join(base, "config", "config.json")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithAPIToken protects the HTTP API with the given bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithBaseURL points API clients at the given server, usually an httptest
// instance.
func WithBaseURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.API.BaseURL = baseURL
	}
}

// WithPollDefaults overrides the poll interval and timeout seconds.
func WithPollDefaults(intervalSeconds, timeoutSeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Poll.IntervalSeconds = intervalSeconds
		cfg.Poll.TimeoutSeconds = timeoutSeconds
	}
}
