package config_test

import (
	"strings"
	"testing"

	"github.com/juanan28s/flextranslator/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	yml := `
server:
  metrics_addr: ":9090"
  log_level: debug
gemini:
  api_key: test-key
  live_model: live-model
  flash_model: flash-model
  flash_fallback_models:
    - backup-a
    - backup-b
audio:
  frames_per_buffer: 512
  release_delay_ms: 300
transcript:
  store_path: /tmp/translator.sqlite
`
	cfg, err := config.LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q; want :9090", cfg.Server.MetricsAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q; want debug", cfg.Server.LogLevel)
	}
	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("APIKey = %q; want test-key", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.LiveModel != "live-model" || cfg.Gemini.FlashModel != "flash-model" {
		t.Errorf("models = %q, %q; want live-model, flash-model", cfg.Gemini.LiveModel, cfg.Gemini.FlashModel)
	}
	if len(cfg.Gemini.FlashFallbackModels) != 2 || cfg.Gemini.FlashFallbackModels[0] != "backup-a" {
		t.Errorf("FlashFallbackModels = %v; want [backup-a backup-b]", cfg.Gemini.FlashFallbackModels)
	}
	if cfg.Audio.FramesPerBuffer != 512 {
		t.Errorf("FramesPerBuffer = %d; want 512", cfg.Audio.FramesPerBuffer)
	}
	if cfg.Audio.ReleaseDelayMS != 300 {
		t.Errorf("ReleaseDelayMS = %d; want 300", cfg.Audio.ReleaseDelayMS)
	}
	if cfg.Transcript.StorePath != "/tmp/translator.sqlite" {
		t.Errorf("StorePath = %q", cfg.Transcript.StorePath)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yml := `
server:
  metrics_addr: ":9090"
bogus_section:
  key: value
`
	if _, err := config.LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Fatal("unknown top-level field should be rejected")
	}
}

func TestLoadFromReader_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	yml := `
gemini:
  api_key: file-key
`
	cfg, err := config.LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("APIKey = %q; env var should win over file value", cfg.Gemini.APIKey)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.LogLevel = "verbose"

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("invalid log level should fail validation")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error %v should name the offending field", err)
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.LogLevel = "verbose"
	cfg.Audio.FramesPerBuffer = -1
	cfg.Audio.ReleaseDelayMS = -5

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "frames_per_buffer", "release_delay_ms"} {
		if !strings.Contains(msg, want) {
			t.Errorf("joined error should mention %s; got %v", want, err)
		}
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()

	if err := config.Validate(&config.Config{}); err != nil {
		t.Errorf("zero config should validate; got %v", err)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error("trace should not be valid")
	}
}
