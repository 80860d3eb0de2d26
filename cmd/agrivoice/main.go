// Package main is the entry point for the agrivoice query server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"agrivoice/config"
	"agrivoice/internal/artifacts"
	"agrivoice/internal/cache"
	"agrivoice/internal/fileguard"
	"agrivoice/internal/guardrail"
	"agrivoice/internal/httpclient"
	"agrivoice/internal/pipeline"
	"agrivoice/internal/providers/gemini"
	"agrivoice/internal/providers/groq"
	"agrivoice/internal/providers/gtts"
	"agrivoice/internal/server"
	"agrivoice/internal/upload"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("starting agrivoice",
		"gemini_model", cfg.GeminiModel,
		"whisper_model", cfg.WhisperModel,
	)

	// Guardrail verdict cache: Redis when configured, in-process otherwise
	verdicts, err := cache.New(cache.Config{RedisURL: cfg.RedisURL, TTL: cfg.CacheTTL})
	if err != nil {
		slog.Error("failed to initialize verdict cache", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := verdicts.Close(); err != nil {
			slog.Warn("failed to close verdict cache", "error", err)
		}
	}()

	// Upstream collaborators share one pooled HTTP client
	hc := httpclient.NewDefault()
	model := gemini.NewWithHTTPClient(cfg.GoogleAPIKey, cfg.GeminiModel, hc)
	stt := groq.NewWithHTTPClient(cfg.GroqAPIKey, cfg.WhisperModel, hc)
	tts := gtts.NewWithHTTPClient(hc)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("failed to create upload directory", "error", err)
		os.Exit(1)
	}

	store, err := artifacts.NewStore(cfg.AudioDir, cfg.AudioTTL, logger)
	if err != nil {
		slog.Error("failed to initialize artifact store", "error", err)
		os.Exit(1)
	}

	sweeperStop := make(chan struct{})
	go store.RunSweeper(sweeperStop)
	defer close(sweeperStop)

	orch := pipeline.New(pipeline.Config{
		Guard:       fileguard.New(cfg.MaxFileSize),
		Uploads:     upload.NewStore(cfg.UploadDir),
		STT:         stt,
		Guardrail:   guardrail.New(guardrail.NewLLMClassifier(model), verdicts, logger),
		Model:       model,
		TTS:         tts,
		Artifacts:   store,
		Logger:      logger,
		STTLanguage: cfg.STTLanguage,
		TTSLanguage: cfg.TTSLanguage,
	})

	serverCfg := &server.Config{
		AllowedOrigins:    cfg.AllowedOrigins,
		BodySizeLimit:     bodyLimit(cfg.MaxFileSize),
		RequestsPerMinute: cfg.RequestsPerMinute,
		MetricsEnabled:    cfg.MetricsEnabled,
	}
	srv := server.New(server.NewHandler(orch, store), serverCfg, logger)

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := cfg.Addr()
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	if cfg.LogPretty {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// bodyLimit leaves room for both uploads plus text and multipart framing.
func bodyLimit(maxFileSize int64) int64 {
	return 2*maxFileSize + 1<<20
}
