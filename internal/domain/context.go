package domain

// ConversationContext is built fresh for every turn and never persisted as-is.
type ConversationContext struct {
	AccountID        AccountID
	MemoryEnabled    bool
	InsightRequested bool
	ProfileFacts     []ProfileFact
	TurnID           uint64
}

// FactsOfKind returns the facts matching any of kinds, keeping their order.
func (c ConversationContext) FactsOfKind(kinds ...FactKind) []ProfileFact {
	facts := make([]ProfileFact, 0, len(c.ProfileFacts))
	for _, fact := range c.ProfileFacts {
		for _, kind := range kinds {
			if fact.Kind == kind {
				facts = append(facts, fact)
				break
			}
		}
	}
	return facts
}

// ComposedPrompt is the instruction block handed to the model for one turn.
type ComposedPrompt struct {
	Text     string
	LayerIDs []string
}
