// Package gtts provides text-to-speech through the Google Translate TTS
// endpoint, which returns MP3 audio for short text fragments.
package gtts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"agrivoice/internal/llmclient"
)

const defaultBaseURL = "https://translate.google.com"

// maxChunkChars is the endpoint's practical per-request text limit.
const maxChunkChars = 180

// Provider implements core.TextToSpeech.
type Provider struct {
	client *llmclient.Client
}

// New creates a TTS provider.
func New() *Provider {
	p := &Provider{}
	p.client = llmclient.New(llmclient.DefaultConfig("gtts", defaultBaseURL), nil)
	return p
}

// NewWithHTTPClient creates a provider with a custom HTTP client.
func NewWithHTTPClient(hc *http.Client) *Provider {
	p := &Provider{}
	p.client = llmclient.NewWithHTTPClient(hc, llmclient.DefaultConfig("gtts", defaultBaseURL), nil)
	return p
}

// SetBaseURL allows configuring a custom base URL. Intended for tests.
func (p *Provider) SetBaseURL(url string) {
	p.client.SetBaseURL(url)
}

// Synthesize converts text to MP3 bytes in the given voice locale. Long
// text is synthesized chunk by chunk; MP3 frames concatenate cleanly.
func (p *Provider) Synthesize(ctx context.Context, text, languageHint string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	var audio []byte
	for _, chunk := range splitChunks(text, maxChunkChars) {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", languageHint)
		q.Set("q", chunk)

		body, err := p.client.DoRaw(ctx, llmclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/translate_tts?" + q.Encode(),
		})
		if err != nil {
			return nil, err
		}
		audio = append(audio, body...)
	}
	return audio, nil
}

// splitChunks breaks text into fragments of at most maxChars characters,
// preferring sentence boundaries, then word boundaries. A single word
// longer than maxChars is split hard.
func splitChunks(text string, maxChars int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range splitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+n+1 > maxChars {
			flush()
		}
		if n <= maxChars {
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(sentence)
			currentLen += n
			continue
		}
		// Sentence itself is too long: fall back to word packing.
		flush()
		for _, word := range strings.Fields(sentence) {
			wn := utf8.RuneCountInString(word)
			if currentLen > 0 && currentLen+wn+1 > maxChars {
				flush()
			}
			for wn > maxChars {
				runes := []rune(word)
				chunks = append(chunks, string(runes[:maxChars]))
				word = string(runes[maxChars:])
				wn = utf8.RuneCountInString(word)
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(word)
			currentLen += wn
		}
		flush()
	}
	flush()
	return chunks
}

// splitSentences splits on Latin and Devanagari sentence terminators,
// keeping the terminator attached.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '।', '\n':
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
