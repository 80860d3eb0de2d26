// Package config provides configuration management for the application.
// All settings come from the environment, with an optional .env file for
// local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Upstream credentials. Both are required: Gemini answers and
	// classifies, Groq transcribes.
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY" required:"true"`
	GroqAPIKey   string `envconfig:"GROQ_API_KEY" required:"true"`

	GeminiModel  string `envconfig:"GEMINI_MODEL_NAME" default:"gemini-2.5-flash"`
	WhisperModel string `envconfig:"WHISPER_MODEL_NAME" default:"whisper-large-v3"`

	// Locales: the transcription hint and the synthesis voice.
	STTLanguage string `envconfig:"STT_LANGUAGE" default:"en"`
	TTSLanguage string `envconfig:"TTS_LANGUAGE" default:"hi"`

	MaxFileSize       int64    `envconfig:"MAX_FILE_SIZE" default:"10485760"`
	RequestsPerMinute int      `envconfig:"REQUESTS_PER_MINUTE" default:"30"`
	AllowedOrigins    []string `envconfig:"ALLOWED_ORIGINS"`

	UploadDir string        `envconfig:"UPLOAD_DIR" default:"temp_uploads"`
	AudioDir  string        `envconfig:"AUDIO_DIR" default:"generated_speech_responses"`
	AudioTTL  time.Duration `envconfig:"AUDIO_TTL" default:"24h"`

	// RedisURL is optional; when empty, guardrail verdicts are cached in
	// process memory.
	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
