package config

const (
	defaultJobsDir               = "jobs"
	defaultOutputDir             = "output"
	defaultCredentialsFile       = "config/config.json"
	defaultAPIBind               = "127.0.0.1:7607"
	defaultBaseURL               = "https://api.openai.com/v1"
	defaultRequestTimeoutSeconds = 60
	defaultVideoModel            = "sora-2"
	defaultTranscribeModel       = "gpt-4o-transcribe"
	defaultTranslateModel        = "whisper-1"
	defaultSpeechModel           = "gpt-4o-mini-tts"
	defaultSpeechVoice           = "alloy"
	defaultPollIntervalSeconds   = 5
	defaultPollTimeoutSeconds    = 600
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JobsDir:         defaultJobsDir,
			OutputDir:       defaultOutputDir,
			CredentialsFile: defaultCredentialsFile,
			APIBind:         defaultAPIBind,
		},
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Video: Video{
			Model: defaultVideoModel,
		},
		Audio: Audio{
			TranscribeModel: defaultTranscribeModel,
			TranslateModel:  defaultTranslateModel,
			SpeechModel:     defaultSpeechModel,
			Voice:           defaultSpeechVoice,
		},
		Poll: Poll{
			IntervalSeconds: defaultPollIntervalSeconds,
			TimeoutSeconds:  defaultPollTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
