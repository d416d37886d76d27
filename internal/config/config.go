// Package config provides the configuration schema and loader for the
// FlexTranslator service.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// ServerConfig holds logging and telemetry endpoint settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// GeminiConfig holds Gemini API credentials and model selection.
type GeminiConfig struct {
	// APIKey is the Gemini API key. The GEMINI_API_KEY environment variable
	// takes precedence when set.
	APIKey string `yaml:"api_key"`

	// LiveModel selects the native-audio model for live sessions. Empty
	// uses the provider default.
	LiveModel string `yaml:"live_model"`

	// FlashModel selects the text model for one-shot translation. Empty
	// uses the provider default.
	FlashModel string `yaml:"flash_model"`

	// FlashFallbackModels are tried in order when the primary one-shot model
	// fails or its circuit breaker is open.
	FlashFallbackModels []string `yaml:"flash_fallback_models"`

	// LiveBaseURL overrides the Live API WebSocket endpoint.
	LiveBaseURL string `yaml:"live_base_url"`

	// RESTBaseURL overrides the generateContent REST endpoint.
	RESTBaseURL string `yaml:"rest_base_url"`
}

// AudioConfig holds capture and playback tuning.
type AudioConfig struct {
	// FramesPerBuffer is the microphone callback block size in samples.
	// Zero uses the hardware default.
	FramesPerBuffer int `yaml:"frames_per_buffer"`

	// ReleaseDelayMS is the pause between tearing down a session and
	// reconnecting on a persona change, giving the hardware time to
	// release. Zero uses the built-in default.
	ReleaseDelayMS int `yaml:"release_delay_ms"`
}

// TranscriptConfig holds transcript persistence settings.
type TranscriptConfig struct {
	// StorePath is the SQLite database file for finished sessions. Empty
	// disables persistence.
	StorePath string `yaml:"store_path"`
}
