package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/services"
	"reel/internal/workflows"
)

const maxUploadMemory = 32 << 20

// Server wraps the workflow service in an HTTP API.
type Server struct {
	bind    string
	svc     *workflows.Service
	logger  *slog.Logger
	handler http.Handler

	listener net.Listener
	httpSrv  *http.Server
}

// New assembles the route table and middleware. The server starts serving
// on Start.
func New(cfg *config.Config, svc *workflows.Service, logger *slog.Logger) (*Server, error) {
	const op = "server"

	if cfg == nil || svc == nil {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "config and service required", nil)
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "paths.api_bind required", nil)
	}
	s := &Server{
		bind:   bind,
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/options", s.handleOptions)
	mux.HandleFunc("/api/videos", s.handleVideos)
	mux.HandleFunc("/api/videos/", s.handleVideoByID)
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobByName)
	mux.HandleFunc("/api/audio/transcriptions", s.handleTranscriptions)
	mux.HandleFunc("/api/audio/translations", s.handleTranslations)
	mux.HandleFunc("/api/audio/speech", s.handleSpeech)

	s.handler = s.withRequestLog(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken), mux.ServeHTTP))
	s.httpSrv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Polled retrieves and content streams legitimately run for minutes,
		// so requests carry no read/write deadline beyond the header read.
		IdleTimeout: 60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped route table, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving and returns once the listener is bound. The server
// shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return services.Wrap(services.ErrIO, "server", "listen on "+s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests briefly, then closes the listener.
func (s *Server) Stop() {
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, or the configured bind before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

type statusResponse struct {
	Status     string `json:"status"`
	Jobs       int    `json:"jobs"`
	JobsDir    string `json:"jobs_dir"`
	OutputDir  string `json:"output_dir"`
	BaseURL    string `json:"base_url"`
	VideoModel string `json:"video_model"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	entries, err := s.svc.ListJobs()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	cfg := s.svc.Config()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:     "ok",
		Jobs:       len(entries),
		JobsDir:    cfg.Paths.JobsDir,
		OutputDir:  cfg.Paths.OutputDir,
		BaseURL:    cfg.API.BaseURL,
		VideoModel: cfg.Video.Model,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Options())
}

type jobSummary struct {
	Filename string `json:"filename"`
	ID       string `json:"id"`
	Status   string `json:"status"`
	Label    string `json:"label"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	entries, err := s.svc.ListJobs()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	jobs := make([]jobSummary, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, jobSummary{
			Filename: entry.Filename,
			ID:       entry.ID,
			Status:   entry.Status,
			Label:    entry.Label(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJobByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, http.StatusNotFound, services.CategoryNotFound, "job not found")
		return
	}
	record, err := s.svc.ShowJob(name)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

// writeFailure renders err in the shared error envelope with the HTTP
// status its category maps to.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	s.writeJSON(w, services.HTTPStatus(err), services.Envelope(err))
}

func (s *Server) writeError(w http.ResponseWriter, status int, category, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{"type": category, "message": message},
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeError(w, http.StatusMethodNotAllowed, services.CategoryUnknown, "method not allowed")
}

// decodeJSONBody decodes into target keeping number literals intact, so
// request fields forwarded to the API survive unmangled.
func decodeJSONBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return services.Wrap(services.ErrInvalidArgument, "server", "decode request body", err)
	}
	return nil
}

func parseBoolParam(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

// parseSecondsParam reads a duration query parameter given in seconds.
func parseSecondsParam(name, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrInvalidArgument, "server",
			fmt.Sprintf("%s must be a number of seconds", name), nil)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
