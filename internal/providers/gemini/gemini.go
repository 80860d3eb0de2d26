// Package gemini provides the Google Gemini generative collaborator.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"agrivoice/internal/core"
	"agrivoice/internal/llmclient"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Provider implements core.GenerativeModel against the native Gemini
// generateContent API, which accepts ordered multimodal parts.
type Provider struct {
	client *llmclient.Client
	apiKey string
	model  string
}

// New creates a Gemini provider for the given model identifier.
func New(apiKey, model string) *Provider {
	p := &Provider{apiKey: apiKey, model: model}
	p.client = llmclient.New(llmclient.DefaultConfig("gemini", defaultBaseURL), p.setHeaders)
	return p
}

// NewWithHTTPClient creates a provider with a custom HTTP client.
func NewWithHTTPClient(apiKey, model string, hc *http.Client) *Provider {
	p := &Provider{apiKey: apiKey, model: model}
	p.client = llmclient.NewWithHTTPClient(hc, llmclient.DefaultConfig("gemini", defaultBaseURL), p.setHeaders)
	return p
}

// SetBaseURL allows configuring a custom base URL. Intended for tests.
func (p *Provider) SetBaseURL(url string) {
	p.client.SetBaseURL(url)
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.apiKey)
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt parts in order and extracts the textual answer.
func (p *Provider) Generate(ctx context.Context, prompt *core.Prompt) (string, error) {
	parts := make([]generatePart, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		if len(part.ImageData) > 0 {
			parts = append(parts, generatePart{InlineData: &inlineData{
				MIMEType: part.ImageMIME,
				Data:     base64.StdEncoding.EncodeToString(part.ImageData),
			}})
			continue
		}
		parts = append(parts, generatePart{Text: part.Text})
	}

	var resp generateResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/models/" + url.PathEscape(p.model) + ":generateContent",
		Body:     generateRequest{Contents: []generateContent{{Parts: parts}}},
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty answer")
	}
	return text, nil
}
