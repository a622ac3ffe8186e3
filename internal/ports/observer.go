package ports

import "github.com/bnema/pairchat/internal/domain"

// TurnObserver receives turn lifecycle events for metrics.
type TurnObserver interface {
	Admitted(id domain.AccountID)
	Denied(id domain.AccountID, reason domain.DenyReason)
	Recorded(id domain.AccountID, tokens int64)
	Flagged(id domain.AccountID, reason domain.ReconcileReason)
	PolicyViolation(layerID string, category domain.RedactionCategory)
	UpstreamFailed(id domain.AccountID)
}

type NopObserver struct{}

var _ TurnObserver = NopObserver{}

func (NopObserver) Admitted(domain.AccountID)                        {}
func (NopObserver) Denied(domain.AccountID, domain.DenyReason)       {}
func (NopObserver) Recorded(domain.AccountID, int64)                 {}
func (NopObserver) Flagged(domain.AccountID, domain.ReconcileReason) {}
func (NopObserver) PolicyViolation(string, domain.RedactionCategory) {}
func (NopObserver) UpstreamFailed(domain.AccountID)                  {}
