package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration read from the environment.
type Config struct {
	CatalogPath   string `env:"OVERLAY_CATALOG"`
	ReferenceName string `env:"OVERLAY_REFERENCE_NAME" envDefault:"VirtualPhantomTracked"`

	SleepAfter   time.Duration `env:"OVERLAY_SLEEP_AFTER" envDefault:"30s"`
	RestartDelay time.Duration `env:"OVERLAY_RESTART_DELAY" envDefault:"500ms"`
	WakePhrases  []string      `env:"OVERLAY_WAKE_PHRASES" envSeparator:","`
	SleepPhrases []string      `env:"OVERLAY_SLEEP_PHRASES" envSeparator:","`
	Animations   bool          `env:"OVERLAY_ANIMATIONS" envDefault:"true"`

	Deepgram  DeepgramConfig
	Telemetry TelemetryConfig
}

type DeepgramConfig struct {
	APIKey     string `env:"DEEPGRAM_API_KEY"`
	ListenURL  string `env:"OVERLAY_DEEPGRAM_URL" envDefault:"wss://api.deepgram.com/v1/listen"`
	Model      string `env:"OVERLAY_DEEPGRAM_MODEL" envDefault:"nova-3"`
	Language   string `env:"OVERLAY_DEEPGRAM_LANGUAGE" envDefault:"en-US"`
	Encoding   string `env:"OVERLAY_AUDIO_ENCODING" envDefault:"linear16"`
	SampleRate int    `env:"OVERLAY_AUDIO_SAMPLE_RATE" envDefault:"16000"`
}

// TelemetryConfig controls trace export. Tracing stays off while Endpoint
// is empty.
type TelemetryConfig struct {
	Endpoint    string `env:"OVERLAY_OTEL_ENDPOINT"`
	Enabled     bool   `env:"OVERLAY_OTEL_ENABLED" envDefault:"true"`
	ServiceName string `env:"OVERLAY_OTEL_SERVICE_NAME" envDefault:"overlay"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
