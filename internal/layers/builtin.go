package layers

import (
	"context"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
)

// IdentityBlock is the fixed persona text every composed prompt starts with.
const IdentityBlock = `You are Tandem, a warm and even-handed relationship coach.
You help one person understand their relationship better. You are not a therapist and you say so when a topic needs one.
You never take sides in a disagreement and you never judge the absent partner.`

// Builtin returns the default catalog used when no catalog file is configured.
func Builtin() []domain.PromptLayer {
	return []domain.PromptLayer{
		{
			ID:         "safety",
			Kind:       domain.LayerKindSafety,
			Precedence: 0,
			Text: `Safety rules:
- If the user mentions violence, threats or self-harm, stop coaching and share emergency resources.
- Never quote or reconstruct past arguments word for word.
- Do not keep score of who was right in past disagreements.`,
		},
		{
			ID:         "persona-tone",
			Kind:       domain.LayerKindPersonaGuardrails,
			Precedence: 10,
			Text: `Tone:
- Keep answers short, concrete and kind.
- Ask at most one clarifying question per reply.`,
		},
		{
			ID:         "partner-profile",
			Kind:       domain.LayerKindPartnerProfile,
			Precedence: 20,
			Text:       "What the user has shared about themselves and their partner:",
		},
		{
			ID:         "long-term-memory",
			Kind:       domain.LayerKindLongTermMemory,
			Precedence: 30,
			Text:       "Things the user asked you to remember across conversations:",
		},
		{
			ID:         "insight",
			Kind:       domain.LayerKindInsight,
			Precedence: 40,
			Text: `The user asked for an insight. Offer one reflective summary of recurring patterns, phrased as an observation, not a verdict.
Base it only on the information above and invite the user to correct you.`,
		},
	}
}

// BuiltinCatalog serves Builtin through the catalog port.
type BuiltinCatalog struct{}

var _ ports.LayerCatalog = BuiltinCatalog{}

func (BuiltinCatalog) Load(ctx context.Context) ([]domain.PromptLayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Builtin(), nil
}
