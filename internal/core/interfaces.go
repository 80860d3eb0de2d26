package core

import "context"

// GenerativeModel is the text/vision generation collaborator. The handle is
// shared across requests and must be safe for concurrent use.
type GenerativeModel interface {
	// Generate runs the prompt and returns the extracted textual answer.
	Generate(ctx context.Context, prompt *Prompt) (string, error)
}

// SpeechToText converts a previously accepted audio file to text.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (string, error)
}

// TextToSpeech converts answer text to encoded audio bytes.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text, languageHint string) ([]byte, error)
}
