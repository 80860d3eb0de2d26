// Package pipeline implements the multimodal query orchestrator: a strict
// sequential chain of validate, transcribe, classify, generate and
// synthesize stages, with every failure mapped to a user-safe result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"agrivoice/internal/artifacts"
	"agrivoice/internal/core"
	"agrivoice/internal/fileguard"
	"agrivoice/internal/guardrail"
	"agrivoice/internal/observability"
	"agrivoice/internal/prompt"
	"agrivoice/internal/upload"
	"agrivoice/internal/validate"
)

// FilePart is an uploaded file as presented by the transport layer. Open
// is deferred so no byte is read before the file guard accepts the
// declared metadata.
type FilePart struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// Input is one submitted query before validation.
type Input struct {
	Text  string
	Image *FilePart
	Audio *FilePart
}

// Result is the terminal outcome of one query. Err is nil on success and
// on degraded (text-only) success; otherwise it carries the failure kind
// and the fixed user message is in Text.
type Result struct {
	Text      string
	AudioFile string
	Err       *core.PipelineError
}

// Orchestrator owns all per-request intermediate data. It holds no
// mutable cross-request state; the collaborator handles are shared and
// safe for concurrent use.
type Orchestrator struct {
	guard     *fileguard.Guard
	uploads   *upload.Store
	stt       core.SpeechToText
	guardrail *guardrail.Guardrail
	model     core.GenerativeModel
	tts       core.TextToSpeech
	artifacts *artifacts.Store
	log       *slog.Logger

	sttLang string
	ttsLang string
}

// Config wires the orchestrator's dependencies, injected once at process
// start.
type Config struct {
	Guard     *fileguard.Guard
	Uploads   *upload.Store
	STT       core.SpeechToText
	Guardrail *guardrail.Guardrail
	Model     core.GenerativeModel
	TTS       core.TextToSpeech
	Artifacts *artifacts.Store
	Logger    *slog.Logger

	// Fixed locales: transcription hint and synthesis voice.
	STTLanguage string
	TTSLanguage string
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	sttLang := cfg.STTLanguage
	if sttLang == "" {
		sttLang = "en"
	}
	ttsLang := cfg.TTSLanguage
	if ttsLang == "" {
		ttsLang = "hi"
	}
	return &Orchestrator{
		guard:     cfg.Guard,
		uploads:   cfg.Uploads,
		stt:       cfg.STT,
		guardrail: cfg.Guardrail,
		model:     cfg.Model,
		tts:       cfg.TTS,
		artifacts: cfg.Artifacts,
		log:       log,
		sttLang:   sttLang,
		ttsLang:   ttsLang,
	}
}

// Process runs one query through the stage chain. Stages are strictly
// sequential; the first failure short-circuits everything after it.
// Accepted temp files are removed on every exit path.
func (o *Orchestrator) Process(ctx context.Context, in *Input) Result {
	res := o.process(ctx, in)

	outcome := "success"
	if res.Err != nil {
		outcome = string(res.Err.Kind)
		if res.Err.Fault() {
			o.log.Error("query failed",
				"request_id", core.GetRequestID(ctx),
				"kind", res.Err.Kind,
				"error", res.Err.Err,
			)
		} else {
			o.log.Info("query rejected",
				"request_id", core.GetRequestID(ctx),
				"kind", res.Err.Kind,
			)
		}
	}
	observability.RecordOutcome(outcome)
	return res
}

func (o *Orchestrator) process(ctx context.Context, in *Input) Result {
	// Empty -> Validating: reject before anything is touched.
	text := validate.Normalize(in.Text)
	if text == "" && in.Image == nil && in.Audio == nil {
		return fail(core.NewInputMissing())
	}

	if text != "" {
		if err := validate.Text(text); err != nil {
			return fail(core.NewInputInvalid(core.MsgTextTooLong, 0))
		}
	}

	query := &core.Query{Text: text}

	if in.Image != nil {
		acc := o.guard.Accept(in.Image.Filename, fileguard.KindImage, in.Image.Size)
		if !acc.OK {
			return fail(rejectionError(fileguard.KindImage, acc.Reason, o.guard.MaxSize()))
		}
		query.Image = &core.Upload{Filename: in.Image.Filename, Size: in.Image.Size, SafeName: acc.SafeName}
	}
	if in.Audio != nil {
		acc := o.guard.Accept(in.Audio.Filename, fileguard.KindAudio, in.Audio.Size)
		if !acc.OK {
			return fail(rejectionError(fileguard.KindAudio, acc.Reason, o.guard.MaxSize()))
		}
		query.Audio = &core.Upload{Filename: in.Audio.Filename, Size: in.Audio.Size, SafeName: acc.SafeName}
	}

	// Accepted files are stored under generated names and removed exactly
	// once on exit, whatever the outcome.
	defer o.cleanup(query)

	if query.Image != nil {
		if pe := o.store(in.Image, query.Image, fileguard.KindImage); pe != nil {
			return fail(pe)
		}
	}
	if query.Audio != nil {
		if pe := o.store(in.Audio, query.Audio, fileguard.KindAudio); pe != nil {
			return fail(pe)
		}
	}

	// Transcribing.
	transcript := ""
	if query.Audio != nil {
		stop := observability.TimeStage("transcribe")
		t, err := o.stt.Transcribe(ctx, query.Audio.Path, o.sttLang)
		stop()
		if err != nil {
			return fail(core.NewTranscriptionFailed(err))
		}
		transcript = strings.TrimSpace(t)
	}

	// Classifying. Image-only queries carry no text to classify and
	// bypass the guardrail.
	effective := prompt.EffectiveText(query.Text, transcript)
	if effective != "" {
		stop := observability.TimeStage("classify")
		inDomain := o.guardrail.Check(ctx, effective)
		stop()
		if !inDomain {
			return fail(core.NewOutOfDomain())
		}
	}

	// Generating.
	var imageMIME string
	var imageData []byte
	if query.Image != nil {
		data, err := os.ReadFile(query.Image.Path)
		if err != nil {
			return fail(core.NewInternal(fmt.Errorf("failed to read stored image: %w", err)))
		}
		imageMIME = query.Image.MIME
		imageData = data
	}

	stop := observability.TimeStage("generate")
	answer, err := o.model.Generate(ctx, prompt.Assemble(effective, imageMIME, imageData))
	stop()
	if err != nil {
		return fail(core.NewGenerationFailed(err))
	}

	// Synthesizing. A failure here degrades the response to text-only
	// rather than discarding the answer.
	stop = observability.TimeStage("synthesize")
	audio, err := o.tts.Synthesize(ctx, answer, o.ttsLang)
	stop()
	if err != nil {
		return degraded(answer, core.NewSynthesisFailed(err))
	}

	name, err := o.artifacts.Put(audio)
	if err != nil {
		return degraded(answer, core.NewSynthesisFailed(err))
	}

	return Result{Text: answer, AudioFile: name}
}

// store saves one accepted upload and records its temp path and sniffed
// content type on the query.
func (o *Orchestrator) store(part *FilePart, up *core.Upload, kind fileguard.Kind) *core.PipelineError {
	src, err := part.Open()
	if err != nil {
		return core.NewInternal(fmt.Errorf("failed to open %s upload: %w", kind, err))
	}
	defer func() {
		_ = src.Close()
	}()

	path, mime, err := o.uploads.Save(src, up.SafeName, kind)
	if err != nil {
		return core.NewInputInvalid(invalidFormatMessage(kind), http.StatusBadRequest)
	}
	up.Path = path
	up.MIME = mime
	return nil
}

// cleanup removes stored temp files. Removal is idempotent and never
// fails the request.
func (o *Orchestrator) cleanup(query *core.Query) {
	for _, up := range []*core.Upload{query.Image, query.Audio} {
		if up == nil || up.Path == "" {
			continue
		}
		if err := o.uploads.Remove(up.Path); err != nil {
			o.log.Warn("failed to remove temp upload", "path", up.Path, "error", err)
		}
	}
}

func fail(err *core.PipelineError) Result {
	return Result{Text: err.Message, Err: err}
}

// degraded keeps the generated answer with the fixed warning suffix. The
// synthesis error is carried for logging and metrics but the response is
// still success-shaped.
func degraded(answer string, err *core.PipelineError) Result {
	return Result{Text: answer + core.MsgAudioWarningSuffix, Err: err}
}

func rejectionError(kind fileguard.Kind, reason fileguard.Reason, maxSize int64) *core.PipelineError {
	if reason == fileguard.ReasonTooLarge {
		msg := fmt.Sprintf("File too large. Maximum size: %dMB", maxSize/(1024*1024))
		return core.NewInputInvalid(msg, http.StatusRequestEntityTooLarge)
	}
	return core.NewInputInvalid(invalidFormatMessage(kind), http.StatusBadRequest)
}

func invalidFormatMessage(kind fileguard.Kind) string {
	return fmt.Sprintf("Invalid %s format. Allowed: %s", kind, strings.Join(fileguard.AllowedExtensions(kind), ", "))
}
