package application

import (
	"strings"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/redact"
)

// LayerDelimiter separates the identity block and each rendered layer.
const LayerDelimiter = "\n\n---\n\n"

// PromptComposer merges the eligible layers into one instruction block.
// Composition is deterministic: the same context always yields the same bytes.
type PromptComposer struct {
	evaluator *ActivationEvaluator
	scanner   *redact.Scanner
	identity  string
}

func NewPromptComposer(evaluator *ActivationEvaluator, scanner *redact.Scanner, identity string) *PromptComposer {
	if scanner == nil {
		scanner = redact.NewScanner()
	}

	return &PromptComposer{
		evaluator: evaluator,
		scanner:   scanner,
		identity:  strings.TrimSpace(identity),
	}
}

// Compose fails with a *domain.RedactionViolationError when any rendered
// layer contains a category its policy forbids. Nothing is stripped.
func (c *PromptComposer) Compose(cc domain.ConversationContext) (domain.ComposedPrompt, error) {
	eligible := c.evaluator.Evaluate(cc)

	type rendered struct {
		layer domain.PromptLayer
		text  string
	}
	parts := make([]rendered, 0, len(eligible))
	for _, layer := range eligible {
		text := layer.Render(cc)
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, rendered{layer: layer, text: text})
	}

	sections := make([]string, 0, len(parts)+1)
	sections = append(sections, c.identity)
	layerIDs := make([]string, 0, len(parts))
	for _, part := range parts {
		sections = append(sections, part.text)
		layerIDs = append(layerIDs, part.layer.ID)
	}
	text := strings.Join(sections, LayerDelimiter)

	for _, part := range parts {
		if violation, found := c.scanner.Scan(part.text, part.layer.RedactionPolicy()); found {
			return domain.ComposedPrompt{}, &domain.RedactionViolationError{
				LayerID:  part.layer.ID,
				Category: violation.Category,
				Fragment: violation.Fragment,
			}
		}
	}

	return domain.ComposedPrompt{Text: text, LayerIDs: layerIDs}, nil
}
