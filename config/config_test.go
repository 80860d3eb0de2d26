package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "test-google-key")
	t.Setenv("GROQ_API_KEY", "test-groq-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "whisper-large-v3", cfg.WhisperModel)
	assert.Equal(t, "en", cfg.STTLanguage)
	assert.Equal(t, "hi", cfg.TTSLanguage)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.Equal(t, "temp_uploads", cfg.UploadDir)
	assert.Equal(t, "generated_speech_responses", cfg.AudioDir)
	assert.Equal(t, 24*time.Hour, cfg.AudioTTL)
	assert.Empty(t, cfg.RedisURL)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadRequiresKeys(t *testing.T) {
	// t.Setenv registers the restore; the variables must be fully unset
	// because an empty value would satisfy the required check.
	for _, key := range []string{"GOOGLE_API_KEY", "GROQ_API_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_MODEL_NAME", "gemini-2.0-pro")
	t.Setenv("MAX_FILE_SIZE", "1048576")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("AUDIO_TTL", "45m")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "gemini-2.0-pro", cfg.GeminiModel)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 45*time.Minute, cfg.AudioTTL)
	assert.True(t, cfg.LogPretty)
}
