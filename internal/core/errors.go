package core

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Kind classifies a pipeline failure. OutOfDomain and the input kinds are
// normal rejection outcomes, not system faults.
type Kind string

const (
	KindInputMissing        Kind = "input_missing"
	KindInputInvalid        Kind = "input_invalid"
	KindTranscriptionFailed Kind = "transcription_failed"
	KindOutOfDomain         Kind = "out_of_domain"
	KindGenerationFailed    Kind = "generation_failed"
	KindSynthesisFailed     Kind = "synthesis_failed"
	KindInternal            Kind = "internal_unexpected"
)

// Fixed user-facing messages. Raw collaborator errors are never forwarded to
// the caller, only logged.
const (
	MsgInputMissing        = "❌ Please provide at least one input (text, image, or audio)."
	MsgTextTooLong         = "❌ Question is too long. Please keep it under 5000 characters. | प्रश्न बहुत लंबा है।"
	MsgTranscriptionFailed = "❌ Could not transcribe audio. Please try again or upload a clearer recording."
	MsgOutOfDomain         = "❌ Not supported: Please ask only farming-related questions. | कृपया केवल खेती से संबंधित प्रश्न पूछें"
	MsgGenericFailure      = "An error occurred while processing your request. Please try again later."
	MsgAudioWarningSuffix  = "\n\n⚠️ Audio response could not be generated."
)

// PipelineError carries a failure kind, a fixed user-safe message, and the
// underlying cause for logging.
type PipelineError struct {
	Kind    Kind
	Message string // user-safe
	// HTTPStatus, when non-zero, tells the transport layer to reject the
	// request with an error status instead of a success-shaped body.
	HTTPStatus int
	Err        error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Fault reports whether the failure is an infrastructure fault rather than
// a normal rejection outcome.
func (e *PipelineError) Fault() bool {
	switch e.Kind {
	case KindInputMissing, KindInputInvalid, KindOutOfDomain:
		return false
	}
	return true
}

// NewInputMissing signals a query with no text, image or audio.
func NewInputMissing() *PipelineError {
	return &PipelineError{Kind: KindInputMissing, Message: MsgInputMissing}
}

// NewInputInvalid signals rejected text or file input. status may be zero
// for outcomes reported as success-shaped text.
func NewInputInvalid(message string, status int) *PipelineError {
	return &PipelineError{Kind: KindInputInvalid, Message: message, HTTPStatus: status}
}

func NewTranscriptionFailed(err error) *PipelineError {
	return &PipelineError{Kind: KindTranscriptionFailed, Message: MsgTranscriptionFailed, Err: err}
}

func NewOutOfDomain() *PipelineError {
	return &PipelineError{Kind: KindOutOfDomain, Message: MsgOutOfDomain}
}

func NewGenerationFailed(err error) *PipelineError {
	return &PipelineError{Kind: KindGenerationFailed, Message: MsgGenericFailure, Err: err}
}

func NewSynthesisFailed(err error) *PipelineError {
	return &PipelineError{Kind: KindSynthesisFailed, Message: MsgGenericFailure, Err: err}
}

func NewInternal(err error) *PipelineError {
	return &PipelineError{
		Kind:       KindInternal,
		Message:    MsgGenericFailure,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ProviderError is an error returned by an external collaborator call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ParseProviderError builds a ProviderError from an error response body,
// extracting the provider's error message when the body is JSON-shaped.
func ParseProviderError(provider string, statusCode int, body []byte, err error) *ProviderError {
	message := string(body)
	if m := gjson.GetBytes(body, "error.message"); m.Exists() && m.String() != "" {
		message = m.String()
	}
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}
