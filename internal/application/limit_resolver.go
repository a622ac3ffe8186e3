package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
)

// LimitResolver returns the account's override when set, otherwise the
// configured default.
type LimitResolver struct {
	accounts     ports.AccountRepository
	defaultLimit int64
}

var _ ports.LimitPolicy = (*LimitResolver)(nil)

func NewLimitResolver(accounts ports.AccountRepository, defaultLimit int64) *LimitResolver {
	return &LimitResolver{accounts: accounts, defaultLimit: defaultLimit}
}

func (r *LimitResolver) LimitFor(ctx context.Context, id domain.AccountID) (int64, error) {
	account, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return r.defaultLimit, nil
		}
		return 0, fmt.Errorf("get account by id: %w", err)
	}

	if account.Settings.LimitOverride != nil {
		return *account.Settings.LimitOverride, nil
	}
	return r.defaultLimit, nil
}
