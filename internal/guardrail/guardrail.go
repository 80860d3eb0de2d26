// Package guardrail decides whether a question is an agriculture topic
// before the generative model is allowed to answer it.
package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"agrivoice/internal/cache"
	"agrivoice/internal/core"
)

// Classifier is the pure capability interface for domain classification.
// Substituting a rule-based or locally-hosted classifier must preserve the
// fail-closed contract: an error from InDomain means the verdict could not
// be established, and the caller rejects.
type Classifier interface {
	InDomain(ctx context.Context, text string) (bool, error)
}

// judgePrompt mirrors the strict binary-classification instruction. The
// model must answer exactly YES or NO.
const judgePrompt = "You are a strict classifier. Only answer with 'YES' or 'NO'. " +
	"Is the following input related to farming, agriculture, crops, soil, plants, livestock, or rural agricultural issues? " +
	"If yes, answer 'YES'. If not, answer 'NO'. Do not explain.\n\nInput: "

// LLMClassifier uses the generative collaborator as a binary classifier.
type LLMClassifier struct {
	model core.GenerativeModel
}

// NewLLMClassifier creates a classifier backed by the shared model handle.
func NewLLMClassifier(model core.GenerativeModel) *LLMClassifier {
	return &LLMClassifier{model: model}
}

// InDomain asks the model for a YES/NO verdict. Anything other than an
// exact trimmed, case-normalized YES counts as out of domain.
func (c *LLMClassifier) InDomain(ctx context.Context, text string) (bool, error) {
	prompt := &core.Prompt{}
	prompt.AddText(judgePrompt + strings.TrimSpace(text))

	answer, err := c.model.Generate(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.ToUpper(strings.TrimSpace(answer)) == "YES", nil
}

// Guardrail wraps a Classifier with fail-closed semantics and optional
// verdict caching.
type Guardrail struct {
	classifier Classifier
	verdicts   cache.VerdictCache
	log        *slog.Logger
}

// New creates a Guardrail. verdicts may be nil to disable caching.
func New(classifier Classifier, verdicts cache.VerdictCache, log *slog.Logger) *Guardrail {
	if log == nil {
		log = slog.Default()
	}
	return &Guardrail{classifier: classifier, verdicts: verdicts, log: log}
}

// Check returns true when the text is in domain. A classifier failure is
// fail-closed: the request is rejected rather than passed through, because
// answering an off-topic question as farming advice is worse than
// rejecting a legitimate one.
func (g *Guardrail) Check(ctx context.Context, effectiveText string) bool {
	key := verdictKey(effectiveText)

	if g.verdicts != nil {
		if inDomain, ok, err := g.verdicts.Get(ctx, key); err == nil && ok {
			return inDomain
		}
	}

	inDomain, err := g.classifier.InDomain(ctx, effectiveText)
	if err != nil {
		g.log.Error("guardrail classifier failed, rejecting (fail-closed)",
			"request_id", core.GetRequestID(ctx),
			"error", err,
		)
		return false
	}

	if g.verdicts != nil {
		if err := g.verdicts.Set(ctx, key, inDomain); err != nil {
			g.log.Warn("failed to cache guardrail verdict", "error", err)
		}
	}

	return inDomain
}

func verdictKey(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.TrimSpace(text)))
}
