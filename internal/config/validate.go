package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.JobsDir) == "" {
		return errors.New("paths.jobs_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CredentialsFile) == "" {
		return errors.New("paths.credentials_file must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Model == "" {
		return errors.New("video.model must be set")
	}
	switch c.Video.Seconds {
	case 0, 4, 8, 12:
	default:
		return errors.New("video.seconds must be 4, 8, or 12 (0 uses the provider default)")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.TranscribeModel == "" {
		return errors.New("audio.transcribe_model must be set")
	}
	if c.Audio.TranslateModel == "" {
		return errors.New("audio.translate_model must be set")
	}
	if c.Audio.SpeechModel == "" {
		return errors.New("audio.speech_model must be set")
	}
	if c.Audio.Voice == "" {
		return errors.New("audio.voice must be set")
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.IntervalSeconds <= 0 {
		return errors.New("poll.interval must be positive (seconds)")
	}
	if c.Poll.TimeoutSeconds <= 0 {
		return errors.New("poll.timeout must be positive (seconds)")
	}
	return nil
}
