package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
)

var ErrInvalidPeriod = errors.New("invalid period key")

// UsageService exposes ledger state for reporting and administration. It is
// read-only except for explicit period resets.
type UsageService struct {
	ledger   ports.UsageLedger
	accounts ports.AccountRepository
	queue    ports.ReconciliationQueue
}

func NewUsageService(ledger ports.UsageLedger, accounts ports.AccountRepository, queue ports.ReconciliationQueue) *UsageService {
	return &UsageService{ledger: ledger, accounts: accounts, queue: queue}
}

func (s *UsageService) GetStatus(ctx context.Context, id domain.AccountID) (UsageStatus, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return UsageStatus{}, fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: id}
	}

	return s.statusFor(ctx, account)
}

func (s *UsageService) GetStatusAll(ctx context.Context) ([]UsageStatus, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	statuses := make([]UsageStatus, 0, len(accounts))
	for _, account := range accounts {
		status, err := s.statusFor(ctx, account)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (s *UsageService) statusFor(ctx context.Context, account domain.Account) (UsageStatus, error) {
	periodKey, err := s.ledger.CurrentPeriod(ctx, account.ID)
	if err != nil {
		return UsageStatus{}, fmt.Errorf("resolve current period: %w", err)
	}

	record, err := s.ledger.GetUsage(ctx, account.ID, periodKey)
	if err != nil {
		return UsageStatus{}, fmt.Errorf("get usage: %w", err)
	}

	return UsageStatus{Account: account, Record: record}, nil
}

func (s *UsageService) History(ctx context.Context, id domain.AccountID) ([]domain.UsageRecord, error) {
	records, err := s.ledger.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("usage history: %w", err)
	}
	return records, nil
}

// ResetPeriod opens newPeriodKey for the account. Prior records are kept.
func (s *UsageService) ResetPeriod(ctx context.Context, cmd ResetPeriodCommand) (domain.UsageRecord, error) {
	periodKey := strings.TrimSpace(cmd.PeriodKey)
	if periodKey == "" || strings.ContainsAny(periodKey, " \t\n") {
		return domain.UsageRecord{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, cmd.PeriodKey)
	}

	record, err := s.ledger.ResetPeriod(ctx, cmd.ID, periodKey)
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("reset period: %w", err)
	}
	return record, nil
}

func (s *UsageService) PendingReconciliation(ctx context.Context) ([]domain.ReconciliationEntry, error) {
	entries, err := s.queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending reconciliation: %w", err)
	}
	return entries, nil
}

func (s *UsageService) ResolveReconciliation(ctx context.Context, id string) error {
	if err := s.queue.Resolve(ctx, id); err != nil {
		return fmt.Errorf("resolve reconciliation %s: %w", id, err)
	}
	return nil
}
