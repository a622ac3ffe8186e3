package domain

import (
	"fmt"
	"time"
)

// Usage is the token breakdown reported by the model for one call.
type Usage struct {
	InputTokens       int64
	OutputTokens      int64
	CachedInputTokens int64
}

// BlendedTotal returns InputTokens + CachedInputTokens + OutputTokens.
func (u Usage) BlendedTotal() int64 {
	return u.InputTokens + u.OutputTokens + u.CachedInputTokens
}

func (u Usage) BlendedTotalCompact() string {
	return compactNumber(u.BlendedTotal())
}

// UsageRecord is the ledger row for one account and period. TokensConsumed is
// never clamped to Limit.
type UsageRecord struct {
	AccountID      AccountID
	PeriodKey      string
	TokensConsumed int64
	Limit          int64
	UpdatedAt      time.Time
}

// Remaining returns the tokens left before the limit, floored at zero.
func (r UsageRecord) Remaining() int64 {
	if r.TokensConsumed >= r.Limit {
		return 0
	}
	return r.Limit - r.TokensConsumed
}

// PercentUsed returns consumption relative to the limit. A zero limit counts as
// fully used.
func (r UsageRecord) PercentUsed() float64 {
	if r.Limit <= 0 {
		return 100
	}
	return float64(r.TokensConsumed) / float64(r.Limit) * 100
}

func (r UsageRecord) ConsumedCompact() string {
	return compactNumber(r.TokensConsumed)
}

func (r UsageRecord) LimitCompact() string {
	return compactNumber(r.Limit)
}

func compactNumber(v int64) string {
	if v < 1_000 {
		return fmt.Sprintf("%d", v)
	}

	if v < 1_000_000 {
		return fmt.Sprintf("%.1fk", float64(v)/1_000)
	}

	return fmt.Sprintf("%.1fM", float64(v)/1_000_000)
}
