package ports

import (
	"context"

	"github.com/bnema/pairchat/internal/domain"
)

// AccountRepository persists the layer-activation context of each account.
type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	// AdvanceTurn increments the account's turn counter, creating the account
	// with default settings when missing, and returns the updated account.
	AdvanceTurn(ctx context.Context, id domain.AccountID) (domain.Account, error)
}
