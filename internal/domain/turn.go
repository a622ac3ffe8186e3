package domain

import "time"

type TurnOutcome string

const (
	TurnOutcomeOK              TurnOutcome = "ok"
	TurnOutcomeDenied          TurnOutcome = "denied"
	TurnOutcomeUpstreamError   TurnOutcome = "upstream-error"
	TurnOutcomePolicyViolation TurnOutcome = "policy-violation"
)

// TurnResult is the closed set of outcomes a turn can end in. Only the fields
// relevant to Outcome are set.
type TurnResult struct {
	Outcome  TurnOutcome
	State    TurnState
	TurnID   uint64
	Response string
	LayerIDs []string
	Usage    Usage
	Decision AdmissionDecision
	// Flagged is set when usage could not be recorded and awaits reconciliation.
	Flagged bool
	Err     error
}

func TurnDenied(decision AdmissionDecision, cause error) TurnResult {
	return TurnResult{Outcome: TurnOutcomeDenied, State: TurnStateDenied, Decision: decision, Err: cause}
}

func TurnOK(turnID uint64, response string, layerIDs []string, usage Usage, decision AdmissionDecision, flagged bool) TurnResult {
	return TurnResult{
		Outcome:  TurnOutcomeOK,
		State:    TurnStateRecorded,
		TurnID:   turnID,
		Response: response,
		LayerIDs: layerIDs,
		Usage:    usage,
		Decision: decision,
		Flagged:  flagged,
	}
}

func TurnUpstreamError(turnID uint64, decision AdmissionDecision, cause error) TurnResult {
	return TurnResult{
		Outcome:  TurnOutcomeUpstreamError,
		State:    TurnStateAdmitted,
		TurnID:   turnID,
		Decision: decision,
		Err:      &UpstreamError{Cause: cause},
	}
}

func TurnPolicyViolation(turnID uint64, decision AdmissionDecision, cause error) TurnResult {
	return TurnResult{
		Outcome:  TurnOutcomePolicyViolation,
		State:    TurnStateAdmitted,
		TurnID:   turnID,
		Decision: decision,
		Err:      cause,
	}
}

type ReconcileReason string

const (
	ReconcileReasonLedgerFailure   ReconcileReason = "ledger-failure"
	ReconcileReasonPeriodRollover  ReconcileReason = "period-rolled-over"
	ReconcileReasonInvalidTokenUse ReconcileReason = "invalid-token-count"
)

// ReconciliationEntry is usage that was delivered but could not be credited
// to the ledger synchronously.
type ReconciliationEntry struct {
	ID         string
	AccountID  AccountID
	PeriodKey  string
	Tokens     int64
	TurnID     uint64
	Reason     ReconcileReason
	Detail     string
	CreatedAt  time.Time
	ResolvedAt time.Time
}

func (e ReconciliationEntry) Resolved() bool {
	return !e.ResolvedAt.IsZero()
}
