package server

import (
	"net/http"
	"os"

	"reel/internal/logging"
	"reel/internal/services"
	"reel/internal/workflows"
)

type transcriptResponse struct {
	Text string `json:"text"`
	Raw  any    `json:"raw,omitempty"`
}

// handleTranscriptions accepts a multipart upload and returns its transcript.
func (s *Server) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	path, cleanup, err := s.spoolAudioUpload(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer cleanup()

	result, err := s.svc.Transcribe(r.Context(), workflows.TranscribeRequest{
		FilePath:       path,
		Model:          r.FormValue("model"),
		Language:       r.FormValue("language"),
		ResponseFormat: r.FormValue("response_format"),
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transcriptResponse{Text: result.Text, Raw: result.Raw})
}

// handleTranslations accepts a multipart upload and returns its English
// translation.
func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	path, cleanup, err := s.spoolAudioUpload(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer cleanup()

	result, err := s.svc.Translate(r.Context(), workflows.TranslateRequest{
		FilePath:       path,
		Model:          r.FormValue("model"),
		ResponseFormat: r.FormValue("response_format"),
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transcriptResponse{Text: result.Text, Raw: result.Raw})
}

type speechPayload struct {
	Input        string `json:"input"`
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

// handleSpeech synthesizes speech and relays the audio bytes. Like the video
// content route, the upstream status is known before the first byte lands in
// w, so zero-byte failures still render the envelope.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	var payload speechPayload
	if err := decodeJSONBody(r, &payload); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	written, err := s.svc.SpeakStream(r.Context(), workflows.SpeakRequest{
		Text:         payload.Input,
		Model:        payload.Model,
		Voice:        payload.Voice,
		Instructions: payload.Instructions,
	}, w)
	if err != nil {
		if written == 0 {
			s.writeFailure(w, err)
			return
		}
		s.logger.Error("speech stream aborted",
			logging.Int64("bytes", written),
			logging.Error(err))
		return
	}
	s.logger.Debug("speech streamed", logging.Int64("bytes", written))
}

// spoolAudioUpload extracts the required file part from a multipart request
// and spools it to a temp file. The cleanup removes the spooled copy.
func (s *Server) spoolAudioUpload(r *http.Request) (string, func(), error) {
	const op = "server"

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return "", nil, services.Wrap(services.ErrInvalidArgument, op, "parse multipart form", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, services.Wrap(services.ErrInvalidArgument, op, "file part required", err)
	}
	path, err := spoolUpload(file, header.Filename)
	file.Close()
	if err != nil {
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}
