package application

import "github.com/bnema/pairchat/internal/domain"

// FactInput is a profile fact before it is assigned a sequence number.
type FactInput struct {
	Kind   domain.FactKind
	Key    string
	Value  string
	Source domain.FactSource
}

type ResetPeriodCommand struct {
	ID        domain.AccountID
	PeriodKey string
}
