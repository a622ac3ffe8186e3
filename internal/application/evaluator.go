package application

import "github.com/bnema/pairchat/internal/domain"

// LayerSource is the read side of the layer registry.
type LayerSource interface {
	All() []domain.PromptLayer
}

// ActivationEvaluator selects the layers eligible for a turn. It performs no
// I/O and keeps registry order.
type ActivationEvaluator struct {
	layers LayerSource
}

func NewActivationEvaluator(layers LayerSource) *ActivationEvaluator {
	return &ActivationEvaluator{layers: layers}
}

func (e *ActivationEvaluator) Evaluate(c domain.ConversationContext) []domain.PromptLayer {
	all := e.layers.All()
	eligible := make([]domain.PromptLayer, 0, len(all))
	for _, layer := range all {
		if layer.Active(c) {
			eligible = append(eligible, layer)
		}
	}
	return eligible
}
