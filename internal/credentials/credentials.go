package credentials

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"reel/internal/logging"
	"reel/internal/services"
)

// DefaultPath is the credential file location relative to the working
// directory when no explicit path is configured.
const DefaultPath = "config/config.json"

const apiKeyField = "api_key"

// Provider supplies the API key used for upstream requests.
type Provider interface {
	// APIKey returns the stored key, or "" when no usable credential exists.
	APIKey() (string, error)
	// SetAPIKey persists a new key, trimmed of surrounding whitespace.
	SetAPIKey(key string) error
}

// FileStore is a Provider backed by a JSON object file.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file-backed credential store. The file is created
// lazily on first SetAPIKey call.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileStore{
		path:   path,
		logger: logging.NewComponentLogger(logger, "credentials"),
	}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// APIKey returns the stored key. A missing or unparseable file yields no
// credential rather than an error; only a failed read reports one.
func (s *FileStore) APIKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	raw, ok := values[apiKeyField].(string)
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(raw), nil
}

// SetAPIKey writes the trimmed key, keeping every other field in the file
// intact.
func (s *FileStore) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[apiKeyField] = strings.TrimSpace(key)
	if err := s.save(values); err != nil {
		return err
	}
	s.logger.Debug("stored api key", logging.String("path", s.path))
	return nil
}

func (s *FileStore) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, services.Wrap(services.ErrIO, "credentials", "read "+s.path, err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.Debug("credential file unparseable, treating as empty",
			logging.String("path", s.path), logging.Error(err))
		return map[string]any{}, nil
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func (s *FileStore) save(values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, "credentials", "encode "+s.path, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "credentials", "create directory", err)
	}

	// Key material stays user-only.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return services.Wrap(services.ErrIO, "credentials", "write temp file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrIO, "credentials", "rename temp file", err)
	}
	return nil
}

// Memory is an in-process Provider used by tests and one-shot overrides.
type Memory struct {
	mu  sync.Mutex
	key string
}

// NewMemory returns a Provider holding the supplied key.
func NewMemory(key string) *Memory {
	return &Memory{key: strings.TrimSpace(key)}
}

func (m *Memory) APIKey() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key, nil
}

func (m *Memory) SetAPIKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = strings.TrimSpace(key)
	return nil
}
