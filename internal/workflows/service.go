package workflows

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/credentials"
	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/poll"
	"reel/internal/registry"
	"reel/internal/services"
	"reel/internal/services/audio"
	"reel/internal/services/sora"
)

// VideoClient is the slice of the video API the flows depend on.
type VideoClient interface {
	Create(ctx context.Context, req sora.CreateRequest) (job.Record, error)
	Retrieve(ctx context.Context, videoID string) (job.Record, error)
	Remix(ctx context.Context, videoID, prompt string) (job.Record, error)
	Delete(ctx context.Context, videoID string) (job.Record, error)
	DownloadContent(ctx context.Context, videoID string, w io.Writer) (int64, error)
	DownloadToFile(ctx context.Context, videoID, path string) (int64, error)
}

// AudioClient is the slice of the audio API the flows depend on.
type AudioClient interface {
	Transcribe(ctx context.Context, req audio.TranscriptionRequest) (audio.Result, error)
	Translate(ctx context.Context, req audio.TranslationRequest) (audio.Result, error)
	Speech(ctx context.Context, req audio.SpeechRequest, w io.Writer) (int64, error)
	SpeechToFile(ctx context.Context, req audio.SpeechRequest, path string) (int64, error)
}

// Service wires the clients, registry, and poll driver together. Construct
// with NewService; safe for concurrent use.
type Service struct {
	cfg    *config.Config
	creds  credentials.Provider
	video  VideoClient
	audio  AudioClient
	jobs   *registry.Store
	poller *poll.Poller
	apiKey string

	logger *slog.Logger // handed to dependencies built here
	log    *slog.Logger // component-tagged for the service's own lines
}

// Option customizes a service, mostly so tests can swap dependencies for
// fakes.
type Option func(*Service)

// WithLogger attaches a logger shared by the service and the dependencies
// it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCredentials replaces the file-backed credential store.
func WithCredentials(creds credentials.Provider) Option {
	return func(s *Service) {
		if creds != nil {
			s.creds = creds
		}
	}
}

// WithAPIKeyOverride pins the key the clients built here send, bypassing the
// credential store for this process. SaveAPIKey still writes to the store.
func WithAPIKeyOverride(key string) Option {
	return func(s *Service) {
		s.apiKey = strings.TrimSpace(key)
	}
}

// WithVideoClient replaces the video API client.
func WithVideoClient(client VideoClient) Option {
	return func(s *Service) {
		if client != nil {
			s.video = client
		}
	}
}

// WithAudioClient replaces the audio API client.
func WithAudioClient(client AudioClient) Option {
	return func(s *Service) {
		if client != nil {
			s.audio = client
		}
	}
}

// WithRegistry replaces the job registry.
func WithRegistry(store *registry.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.jobs = store
		}
	}
}

// WithPoller replaces the poll driver.
func WithPoller(poller *poll.Poller) Option {
	return func(s *Service) {
		if poller != nil {
			s.poller = poller
		}
	}
}

// NewService builds the flow service from configuration. Dependencies not
// supplied through options are constructed from the config.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrInvalidArgument, "workflows", "config required", nil)
	}
	s := &Service{
		cfg:    cfg,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.NewComponentLogger(s.logger, "workflows")

	if s.creds == nil {
		s.creds = credentials.NewFileStore(cfg.Paths.CredentialsFile, s.logger)
	}
	if s.video == nil {
		s.video = sora.NewClient(s.creds,
			sora.WithBaseURL(cfg.API.BaseURL),
			sora.WithTimeout(cfg.RequestTimeout()),
			sora.WithAPIKey(s.apiKey),
			sora.WithLogger(s.logger))
	}
	if s.audio == nil {
		s.audio = audio.NewClient(s.creds,
			audio.WithBaseURL(cfg.API.BaseURL),
			audio.WithTimeout(cfg.RequestTimeout()),
			audio.WithAPIKey(s.apiKey),
			audio.WithLogger(s.logger))
	}
	if s.jobs == nil {
		store, err := registry.NewStore(cfg.Paths.JobsDir, s.logger)
		if err != nil {
			return nil, err
		}
		s.jobs = store
	}
	if s.poller == nil {
		s.poller = poll.New(s.video, poll.WithLogger(s.logger))
	}
	return s, nil
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// PollRequest carries per-call poll settings. Zero durations fall back to
// the configured defaults; explicit negatives are rejected by the driver.
type PollRequest struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

// Outcome reports what a video flow did.
type Outcome struct {
	Record      job.Record `json:"record,omitempty"`
	SavedFile   string     `json:"saved_file,omitempty"`
	Updated     bool       `json:"updated,omitempty"`
	VideoPath   string     `json:"video_path,omitempty"`
	DeletedFile string     `json:"deleted_file,omitempty"`
}

// Catalog lists the request options the interactive surfaces present.
type Catalog struct {
	Models         []string            `json:"models"`
	SecondsChoices []int               `json:"seconds_choices"`
	SizesByModel   map[string][]string `json:"sizes_by_model"`
	DefaultModel   string              `json:"default_model"`
}

// Options reports the model, duration, and size catalogs plus the
// configured default model.
func (s *Service) Options() Catalog {
	models := sora.Models()
	sizes := make(map[string][]string, len(models))
	for _, model := range models {
		sizes[model] = sora.SizesForModel(model)
	}
	return Catalog{
		Models:         models,
		SecondsChoices: sora.SecondsChoices(),
		SizesByModel:   sizes,
		DefaultModel:   s.cfg.Video.Model,
	}
}

// ListJobs returns the saved jobs, oldest first.
func (s *Service) ListJobs() ([]registry.Entry, error) {
	return s.jobs.List()
}

// JobChoices returns choice-list labels with the Custom sentinel first.
func (s *Service) JobChoices() ([]string, error) {
	return s.jobs.Labels()
}

// ShowJob loads one saved snapshot by registry filename.
func (s *Service) ShowJob(filename string) (job.Record, error) {
	return s.jobs.Read(filename)
}

// ResolveVideoID maps a job label to its recorded video id, falling back to
// the typed-in id.
func (s *Service) ResolveVideoID(label, typedID string) string {
	return s.jobs.ResolveID(label, typedID)
}

// SaveAPIKey persists the key for later requests.
func (s *Service) SaveAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrInvalidArgument, "credentials", "api key is empty", nil)
	}
	if err := s.creds.SetAPIKey(key); err != nil {
		return err
	}
	s.log.Info("api key saved")
	return nil
}

func (s *Service) pollOptions(req PollRequest) poll.Options {
	interval := req.Interval
	if interval == 0 {
		interval = s.cfg.PollInterval()
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = s.cfg.PollTimeout()
	}
	return poll.Options{Interval: interval, Timeout: timeout}
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func defaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}
