package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	"github.com/bnema/pairchat/internal/redact"
)

var (
	ErrInvalidFact  = errors.New("invalid profile fact")
	ErrInvalidLimit = errors.New("invalid token limit")
)

// factCategories are checked against every fact before it is stored.
var factCategories = []domain.RedactionCategory{
	domain.CategoryConflictTranscript,
	domain.CategoryEmotionalScorekeeping,
	domain.CategoryRawQuizAnswer,
}

// AccountService manages the persisted settings and profile of an account.
type AccountService struct {
	repo    ports.AccountRepository
	ledger  ports.UsageLedger
	limits  ports.LimitPolicy
	scanner *redact.Scanner
	clock   ports.Clock
}

func NewAccountService(repo ports.AccountRepository, ledger ports.UsageLedger, limits ports.LimitPolicy, scanner *redact.Scanner, clock ports.Clock) *AccountService {
	if scanner == nil {
		scanner = redact.NewScanner()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AccountService{
		repo:    repo,
		ledger:  ledger,
		limits:  limits,
		scanner: scanner,
		clock:   clock,
	}
}

func (s *AccountService) getOrNew(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Account{}, fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: id, Name: fmt.Sprintf("Account %s", id)}
	}
	return account, nil
}

func (s *AccountService) SetMemoryEnabled(ctx context.Context, id domain.AccountID, enabled bool) error {
	account, err := s.getOrNew(ctx, id)
	if err != nil {
		return err
	}

	account.Settings.MemoryEnabled = enabled
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account memory setting: %w", err)
	}

	return nil
}

func (s *AccountService) SetAccountName(ctx context.Context, id domain.AccountID, name string) error {
	account, err := s.getOrNew(ctx, id)
	if err != nil {
		return err
	}

	account.Name = name
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account name: %w", err)
	}

	return nil
}

// SetLimitOverride stores the override (nil clears it) and restamps the open
// period's limit. The account is restored when the ledger update fails.
func (s *AccountService) SetLimitOverride(ctx context.Context, id domain.AccountID, limit *int64) error {
	if limit != nil && *limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, *limit)
	}

	account, err := s.getOrNew(ctx, id)
	if err != nil {
		return err
	}
	original := account

	if limit != nil {
		value := *limit
		account.Settings.LimitOverride = &value
	} else {
		account.Settings.LimitOverride = nil
	}
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account limit override: %w", err)
	}

	if err := s.applyLimit(ctx, id); err != nil {
		if restoreErr := s.repo.Save(ctx, original); restoreErr != nil {
			return fmt.Errorf("apply limit and restore account: %w", errors.Join(err, restoreErr))
		}
		return err
	}

	return nil
}

func (s *AccountService) applyLimit(ctx context.Context, id domain.AccountID) error {
	effective, err := s.limits.LimitFor(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve limit: %w", err)
	}

	periodKey, err := s.ledger.CurrentPeriod(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve current period: %w", err)
	}

	if _, err := s.ledger.SetLimit(ctx, id, periodKey, effective); err != nil {
		return fmt.Errorf("set ledger limit: %w", err)
	}

	return nil
}

// AppendProfileFacts validates and appends facts. A batch is rejected as a
// whole when any fact, or the rendered fact list it would produce, carries
// transcript, scorekeeping or raw quiz content.
func (s *AccountService) AppendProfileFacts(ctx context.Context, id domain.AccountID, inputs []FactInput) (domain.Account, error) {
	for _, input := range inputs {
		if err := s.validateFact(input); err != nil {
			return domain.Account{}, err
		}
	}

	account, err := s.getOrNew(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	next := account.NextFactSeq()
	for _, input := range inputs {
		source := input.Source
		if source == "" {
			source = domain.FactSourceObservation
		}
		account.ProfileFacts = append(account.ProfileFacts, domain.ProfileFact{
			Seq:    next,
			Kind:   input.Kind,
			Key:    strings.TrimSpace(input.Key),
			Value:  strings.TrimSpace(input.Value),
			Source: source,
		})
		next++
	}
	if err := s.validateRenderedFacts(account.ProfileFacts); err != nil {
		return domain.Account{}, err
	}
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save profile facts: %w", err)
	}

	return account, nil
}

// validateRenderedFacts scans facts as the profile and memory layers list
// them, so content split across several facts is caught before it is stored.
func (s *AccountService) validateRenderedFacts(facts []domain.ProfileFact) error {
	cc := domain.ConversationContext{ProfileFacts: facts}
	for _, kind := range []domain.LayerKind{domain.LayerKindPartnerProfile, domain.LayerKindLongTermMemory} {
		rendered := domain.PromptLayer{Kind: kind}.Render(cc)
		if violation, found := s.scanner.Scan(rendered, factCategories); found {
			return fmt.Errorf("%w: %s facts together carry %s content: %w", ErrInvalidFact, kind, violation.Category, domain.ErrRedactionViolation)
		}
	}

	return nil
}

func (s *AccountService) validateFact(input FactInput) error {
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidFact, input.Kind)
	}
	if input.Source != "" && !input.Source.Valid() {
		return fmt.Errorf("%w: unsupported source %q", ErrInvalidFact, input.Source)
	}
	if strings.TrimSpace(input.Key) == "" || strings.TrimSpace(input.Value) == "" {
		return fmt.Errorf("%w: key and value are required", ErrInvalidFact)
	}

	text := input.Key + ": " + input.Value
	if violation, found := s.scanner.Scan(text, factCategories); found {
		return fmt.Errorf("%w: fact %q carries %s content: %w", ErrInvalidFact, input.Key, violation.Category, domain.ErrRedactionViolation)
	}

	return nil
}

// RemoveProfileFact deletes the fact with the given sequence number.
func (s *AccountService) RemoveProfileFact(ctx context.Context, id domain.AccountID, seq int) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	kept := account.ProfileFacts[:0:0]
	for _, fact := range account.ProfileFacts {
		if fact.Seq != seq {
			kept = append(kept, fact)
		}
	}
	if len(kept) == len(account.ProfileFacts) {
		return fmt.Errorf("%w: no fact #%d", ErrInvalidFact, seq)
	}

	account.ProfileFacts = kept
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save profile facts: %w", err)
	}

	return nil
}

func (s *AccountService) GetAccount(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}
