package application

import "github.com/bnema/pairchat/internal/domain"

// UsageStatus is the usage view of one account in its current period.
type UsageStatus struct {
	Account domain.Account
	Record  domain.UsageRecord
}

func (s UsageStatus) Exhausted() bool {
	return s.Record.TokensConsumed >= s.Record.Limit
}
