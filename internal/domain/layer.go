package domain

import (
	"fmt"
	"sort"
	"strings"
)

// LayerKind is the closed set of layer variants. The kind fixes both the
// activation predicate and the baseline redaction policy of a layer.
type LayerKind string

const (
	LayerKindPersonaGuardrails LayerKind = "persona-guardrails"
	LayerKindPartnerProfile    LayerKind = "partner-profile"
	LayerKindLongTermMemory    LayerKind = "long-term-memory"
	LayerKindInsight           LayerKind = "insight"
	LayerKindSafety            LayerKind = "safety"
)

func (k LayerKind) Valid() bool {
	switch k {
	case LayerKindPersonaGuardrails, LayerKindPartnerProfile, LayerKindLongTermMemory, LayerKindInsight, LayerKindSafety:
		return true
	default:
		return false
	}
}

type RedactionCategory string

const (
	CategoryConflictTranscript    RedactionCategory = "conflict-transcript"
	CategoryEmotionalScorekeeping RedactionCategory = "emotional-scorekeeping"
	CategoryRawQuizAnswer         RedactionCategory = "raw-quiz-answer"
)

func (c RedactionCategory) Valid() bool {
	switch c {
	case CategoryConflictTranscript, CategoryEmotionalScorekeeping, CategoryRawQuizAnswer:
		return true
	default:
		return false
	}
}

// PromptLayer is one unit of instruction text injected under a precondition.
type PromptLayer struct {
	ID         string
	Kind       LayerKind
	Precedence int
	// Text is the static preamble rendered before any context-derived lines.
	Text string
	// Redaction lists categories forbidden in addition to the kind baseline.
	Redaction []RedactionCategory
}

func (l PromptLayer) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("layer id is required")
	}
	if strings.ContainsAny(l.ID, " \t\r\n") {
		return fmt.Errorf("layer %q: id must not contain whitespace", l.ID)
	}
	if !l.Kind.Valid() {
		return fmt.Errorf("layer %q: unsupported kind %q", l.ID, l.Kind)
	}
	for _, category := range l.Redaction {
		if !category.Valid() {
			return fmt.Errorf("layer %q: unsupported redaction category %q", l.ID, category)
		}
	}

	return nil
}

// Active reports whether the layer applies to c. It never fails: unmet
// preconditions yield false.
func (l PromptLayer) Active(c ConversationContext) bool {
	switch l.Kind {
	case LayerKindPersonaGuardrails, LayerKindSafety:
		return true
	case LayerKindPartnerProfile:
		return len(c.FactsOfKind(FactKindPreference, FactKindTrait)) > 0
	case LayerKindLongTermMemory:
		return c.MemoryEnabled
	case LayerKindInsight:
		return c.InsightRequested
	default:
		return false
	}
}

func (l PromptLayer) Render(c ConversationContext) string {
	text := strings.TrimSpace(l.Text)

	var facts []ProfileFact
	switch l.Kind {
	case LayerKindPartnerProfile:
		facts = c.FactsOfKind(FactKindPreference, FactKindTrait)
	case LayerKindLongTermMemory:
		facts = c.FactsOfKind(FactKindMemory)
	}
	if len(facts) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	for _, fact := range facts {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(fact.Key))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(fact.Value))
	}

	return b.String()
}

// RedactionPolicy returns the kind baseline merged with the configured
// categories, sorted and deduplicated.
func (l PromptLayer) RedactionPolicy() []RedactionCategory {
	categories := append(baselineRedaction(l.Kind), l.Redaction...)

	seen := make(map[RedactionCategory]struct{}, len(categories))
	policy := make([]RedactionCategory, 0, len(categories))
	for _, category := range categories {
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		policy = append(policy, category)
	}
	sort.Slice(policy, func(i, j int) bool { return policy[i] < policy[j] })

	return policy
}

// Conflict transcripts are forbidden for every kind.
func baselineRedaction(kind LayerKind) []RedactionCategory {
	switch kind {
	case LayerKindPartnerProfile, LayerKindLongTermMemory:
		return []RedactionCategory{CategoryConflictTranscript, CategoryEmotionalScorekeeping, CategoryRawQuizAnswer}
	case LayerKindInsight:
		return []RedactionCategory{CategoryConflictTranscript, CategoryEmotionalScorekeeping}
	default:
		return []RedactionCategory{CategoryConflictTranscript}
	}
}

// SortLayers orders layers by precedence, then by id.
func SortLayers(layers []PromptLayer) {
	sort.SliceStable(layers, func(i, j int) bool {
		if layers[i].Precedence == layers[j].Precedence {
			return layers[i].ID < layers[j].ID
		}
		return layers[i].Precedence < layers[j].Precedence
	})
}
