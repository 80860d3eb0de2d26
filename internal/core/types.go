// Package core provides the shared types, interfaces and errors for the
// multimodal query pipeline.
package core

// Upload describes a single file attached to a query. The client-declared
// filename is only ever used to derive the extension; storage is addressed
// by the generated safe name.
type Upload struct {
	Filename string
	Size     int64
	SafeName string
	Path     string // temp path once stored, empty until then
	MIME     string // sniffed content type, set by the upload store
}

// Query is the unit of work: one farmer question in up to three modalities.
// It is owned by the orchestrator for the lifetime of a single request and
// never persisted.
type Query struct {
	Text  string
	Image *Upload
	Audio *Upload
}

// Empty reports whether the query carries no input at all.
func (q *Query) Empty() bool {
	return q.Text == "" && q.Image == nil && q.Audio == nil
}

// PromptPart is a single element of a multimodal prompt. Exactly one of
// Text or ImageData is set.
type PromptPart struct {
	Text      string
	ImageMIME string
	ImageData []byte
}

// Prompt is an ordered part sequence consumed exactly once by the
// generative model. Order is significant: instructions precede content.
type Prompt struct {
	Parts []PromptPart
}

// AddText appends a text part.
func (p *Prompt) AddText(text string) {
	p.Parts = append(p.Parts, PromptPart{Text: text})
}

// AddImage appends an image part.
func (p *Prompt) AddImage(mime string, data []byte) {
	p.Parts = append(p.Parts, PromptPart{ImageMIME: mime, ImageData: data})
}

// Answer is the terminal output of a successful request. AudioFile is the
// generated artifact name under the audio output directory, empty when
// synthesis failed or was skipped.
type Answer struct {
	Text      string
	AudioFile string
}
