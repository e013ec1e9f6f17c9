package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reel/internal/logging"
	"reel/internal/services"
	"reel/internal/workflows"
)

type createVideoPayload struct {
	Prompt  string         `json:"prompt"`
	Model   string         `json:"model"`
	Seconds int            `json:"seconds"`
	Size    string         `json:"size"`
	Extra   map[string]any `json:"extra"`
}

// handleVideos submits a new render. JSON bodies carry the request fields
// directly; multipart bodies additionally carry an input_reference upload,
// spooled to a temp file so the API client can re-read it.
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	var req workflows.VideoCreateRequest
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		cleanup, err := s.decodeCreateForm(r, &req)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			s.writeFailure(w, err)
			return
		}
	} else {
		var payload createVideoPayload
		if err := decodeJSONBody(r, &payload); err != nil {
			s.writeFailure(w, err)
			return
		}
		req = workflows.VideoCreateRequest{
			Prompt:  payload.Prompt,
			Model:   payload.Model,
			Seconds: payload.Seconds,
			Size:    payload.Size,
			Extra:   payload.Extra,
		}
	}
	outcome, err := s.svc.CreateVideo(r.Context(), req)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

// decodeCreateForm reads the multipart variant of the create request. The
// returned cleanup removes the spooled upload and must run after the create
// call, which re-reads the file.
func (s *Server) decodeCreateForm(r *http.Request, req *workflows.VideoCreateRequest) (func(), error) {
	const op = "server"

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "parse multipart form", err)
	}
	req.Prompt = r.FormValue("prompt")
	req.Model = r.FormValue("model")
	req.Size = r.FormValue("size")
	if raw := strings.TrimSpace(r.FormValue("seconds")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return nil, services.Wrap(services.ErrInvalidArgument, op, "seconds must be an integer", nil)
		}
		req.Seconds = seconds
	}
	if raw := strings.TrimSpace(r.FormValue("extra")); raw != "" {
		extra, err := decodeExtra(raw)
		if err != nil {
			return nil, err
		}
		req.Extra = extra
	}

	file, header, err := r.FormFile("input_reference")
	switch {
	case err == nil:
		path, spoolErr := spoolUpload(file, header.Filename)
		file.Close()
		if spoolErr != nil {
			return nil, spoolErr
		}
		req.InputReference = path
		return func() { os.Remove(path) }, nil
	case errors.Is(err, http.ErrMissingFile):
		return nil, nil
	default:
		return nil, services.Wrap(services.ErrInvalidArgument, op, "read input_reference", err)
	}
}

// handleVideoByID routes /api/videos/{id} plus its /remix and /content
// subresources.
func (s *Server) handleVideoByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	parts := strings.Split(rest, "/")
	videoID := strings.TrimSpace(parts[0])
	if videoID == "" {
		s.writeError(w, http.StatusNotFound, services.CategoryNotFound, "video not found")
		return
	}
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.retrieveVideo(w, r, videoID)
		case http.MethodDelete:
			s.deleteVideo(w, r, videoID)
		default:
			s.methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "remix":
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w)
			return
		}
		s.remixVideo(w, r, videoID)
	case len(parts) == 2 && parts[1] == "content":
		if r.Method != http.MethodGet {
			s.methodNotAllowed(w)
			return
		}
		s.streamVideoContent(w, r, videoID)
	default:
		s.writeError(w, http.StatusNotFound, services.CategoryNotFound, "video not found")
	}
}

func (s *Server) retrieveVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	query := r.URL.Query()
	interval, err := parseSecondsParam("interval", query.Get("interval"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	timeout, err := parseSecondsParam("timeout", query.Get("timeout"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	outcome, err := s.svc.RetrieveVideo(r.Context(), workflows.VideoRetrieveRequest{
		VideoID: videoID,
		Poll: workflows.PollRequest{
			Enabled:  parseBoolParam(query.Get("poll")),
			Interval: interval,
			Timeout:  timeout,
		},
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	outcome, err := s.svc.DeleteVideo(r.Context(), workflows.VideoDeleteRequest{
		VideoID: videoID,
		Label:   r.URL.Query().Get("label"),
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) remixVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		s.writeFailure(w, err)
		return
	}
	outcome, err := s.svc.RemixVideo(r.Context(), workflows.VideoRemixRequest{
		VideoID: videoID,
		Prompt:  payload.Prompt,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

// streamVideoContent relays the rendered clip. The client checks the
// upstream status before writing, so failures with zero bytes written can
// still render the error envelope; a stream broken mid-copy is only logged.
func (s *Server) streamVideoContent(w http.ResponseWriter, r *http.Request, videoID string) {
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", videoID+".mp4"))
	written, err := s.svc.StreamVideoContent(r.Context(), "", videoID, w)
	if err != nil {
		if written == 0 {
			s.writeFailure(w, err)
			return
		}
		s.logger.Error("content stream aborted",
			logging.String("video_id", videoID),
			logging.Int64("bytes", written),
			logging.Error(err))
		return
	}
	s.logger.Debug("content streamed",
		logging.String("video_id", videoID),
		logging.Int64("bytes", written))
}

// decodeExtra parses the extra form field, a JSON object of pass-through
// request parameters.
func decodeExtra(raw string) (map[string]any, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var extra map[string]any
	if err := decoder.Decode(&extra); err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, "server", "extra must be a JSON object", err)
	}
	return extra, nil
}

// spoolUpload copies an uploaded part to a temp file so downstream clients
// can reopen it by path. The caller removes the file when done.
func spoolUpload(file multipart.File, filename string) (string, error) {
	const op = "server"

	name := "reel-" + uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(os.TempDir(), name)
	out, err := os.Create(path)
	if err != nil {
		return "", services.Wrap(services.ErrIO, op, "spool upload", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", services.Wrap(services.ErrIO, op, "spool upload", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", services.Wrap(services.ErrIO, op, "spool upload", err)
	}
	return path, nil
}
