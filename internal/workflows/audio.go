package workflows

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"reel/internal/logging"
	"reel/internal/services/audio"
)

// TranscribeRequest describes an audio file to transcribe. Model falls back
// to the configured transcription default.
type TranscribeRequest struct {
	FilePath       string
	Model          string
	Language       string
	ResponseFormat string
}

// TranslateRequest describes an audio file to translate into English.
type TranslateRequest struct {
	FilePath       string
	Model          string
	ResponseFormat string
}

// SpeakRequest describes text to synthesize. An empty OutputPath lands the
// clip in the output directory under a timestamped name.
type SpeakRequest struct {
	Text         string
	Model        string
	Voice        string
	Instructions string
	OutputPath   string
}

// SpeechOutcome reports where a synthesized clip landed.
type SpeechOutcome struct {
	AudioPath string `json:"audio_path"`
	Bytes     int64  `json:"bytes"`
}

// Transcribe converts speech to text in its spoken language.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (audio.Result, error) {
	result, err := s.audio.Transcribe(ctx, audio.TranscriptionRequest{
		FilePath:       req.FilePath,
		Model:          defaultString(req.Model, s.cfg.Audio.TranscribeModel),
		Language:       req.Language,
		ResponseFormat: req.ResponseFormat,
	})
	if err != nil {
		return audio.Result{}, err
	}
	s.log.Info("audio transcribed", logging.String("file", req.FilePath))
	return result, nil
}

// Translate converts speech in any supported language to English text.
func (s *Service) Translate(ctx context.Context, req TranslateRequest) (audio.Result, error) {
	result, err := s.audio.Translate(ctx, audio.TranslationRequest{
		FilePath:       req.FilePath,
		Model:          defaultString(req.Model, s.cfg.Audio.TranslateModel),
		ResponseFormat: req.ResponseFormat,
	})
	if err != nil {
		return audio.Result{}, err
	}
	s.log.Info("audio translated", logging.String("file", req.FilePath))
	return result, nil
}

// Speak synthesizes speech and writes it to disk.
func (s *Service) Speak(ctx context.Context, req SpeakRequest) (SpeechOutcome, error) {
	path := strings.TrimSpace(req.OutputPath)
	if path == "" {
		name := fmt.Sprintf("speech_%s.mp3", time.Now().Format("20060102_150405"))
		path = filepath.Join(s.cfg.Paths.OutputDir, name)
	}
	written, err := s.audio.SpeechToFile(ctx, audio.SpeechRequest{
		Text:         req.Text,
		Model:        defaultString(req.Model, s.cfg.Audio.SpeechModel),
		Voice:        defaultString(req.Voice, s.cfg.Audio.Voice),
		Instructions: req.Instructions,
	}, path)
	if err != nil {
		return SpeechOutcome{}, err
	}
	s.log.Info("speech synthesized",
		logging.String("path", path),
		logging.Int64("bytes", written))
	return SpeechOutcome{AudioPath: path, Bytes: written}, nil
}

// SpeakStream synthesizes speech straight into w, for callers that relay the
// audio instead of keeping it.
func (s *Service) SpeakStream(ctx context.Context, req SpeakRequest, w io.Writer) (int64, error) {
	return s.audio.Speech(ctx, audio.SpeechRequest{
		Text:         req.Text,
		Model:        defaultString(req.Model, s.cfg.Audio.SpeechModel),
		Voice:        defaultString(req.Voice, s.cfg.Audio.Voice),
		Instructions: req.Instructions,
	}, w)
}
