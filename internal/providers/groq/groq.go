// Package groq provides the Groq Whisper speech-to-text collaborator.
package groq

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"agrivoice/internal/core"
	"agrivoice/internal/llmclient"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Provider implements core.SpeechToText via Groq's audio transcription API.
type Provider struct {
	client *llmclient.Client
	apiKey string
	model  string
}

// New creates a Groq transcription provider for the given Whisper model.
func New(apiKey, model string) *Provider {
	p := &Provider{apiKey: apiKey, model: model}
	p.client = llmclient.New(llmclient.DefaultConfig("groq", defaultBaseURL), p.setHeaders)
	return p
}

// NewWithHTTPClient creates a provider with a custom HTTP client.
func NewWithHTTPClient(apiKey, model string, hc *http.Client) *Provider {
	p := &Provider{apiKey: apiKey, model: model}
	p.client = llmclient.NewWithHTTPClient(hc, llmclient.DefaultConfig("groq", defaultBaseURL), p.setHeaders)
	return p
}

// SetBaseURL allows configuring a custom base URL. Intended for tests.
func (p *Provider) SetBaseURL(url string) {
	p.client.SetBaseURL(url)
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads a previously accepted audio file and returns its
// transcript. One collaborator call per invocation; retry policy lives in
// the client.
func (p *Provider) Transcribe(ctx context.Context, audioPath, languageHint string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var resp transcriptionResponse
	err = p.client.DoMultipart(ctx, llmclient.MultipartRequest{
		Endpoint: "/audio/transcriptions",
		Fields: map[string]string{
			"model":    p.model,
			"language": languageHint,
		},
		FileField: "file",
		FileName:  filepath.Base(audioPath),
		File:      f,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
