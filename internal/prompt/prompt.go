// Package prompt assembles the multimodal prompt for the generative
// collaborator.
package prompt

import "agrivoice/internal/core"

// instruction is the fixed system fragment. It constrains persona, output
// language, brevity and formatting, and must precede all content parts so
// the model treats it as governing context.
const instruction = "You are an AI assistant specialized in farming advice. " +
	"Read the farmer's question carefully and give a clear, practical answer. " +
	"Respond only in Hindi. " +
	"Keep the answer short, limited to 2–3 key points. " +
	"Do not add any introduction or summary, and avoid symbols like *."

// TranscriptLabel marks transcript text appended to the original question
// so the model can tell the two sources apart.
const TranscriptLabel = "Transcribed audio: "

// EffectiveText concatenates raw question text with a labeled transcript.
// Either part may be empty.
func EffectiveText(text, transcript string) string {
	if transcript == "" {
		return text
	}
	if text == "" {
		return TranscriptLabel + transcript
	}
	return text + "\n" + TranscriptLabel + transcript
}

// Assemble builds the ordered part sequence: instruction, question text,
// then the image payload only if present.
func Assemble(effectiveText string, imageMIME string, imageData []byte) *core.Prompt {
	p := &core.Prompt{}
	p.AddText(instruction)
	p.AddText("\n\nFarmer's Question: " + effectiveText)
	if len(imageData) > 0 {
		p.AddImage(imageMIME, imageData)
	}
	return p
}
