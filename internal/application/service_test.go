package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tomlrepo "github.com/bnema/pairchat/internal/adapters/repo/toml"
	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports/mocks"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAccountService(t *testing.T) (*AccountService, *mocks.MockAccountRepository, *mocks.MockUsageLedger, *mocks.MockLimitPolicy, time.Time) {
	t.Helper()

	repo := mocks.NewMockAccountRepository(t)
	ledger := mocks.NewMockUsageLedger(t)
	limits := mocks.NewMockLimitPolicy(t)
	clock := mocks.NewMockClock(t)
	now := time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(now).Maybe()

	return NewAccountService(repo, ledger, limits, nil, clock), repo, ledger, limits, now
}

func TestAccountServiceSetMemoryEnabledCreatesMissingAccount(t *testing.T) {
	service, repo, _, _, now := newTestAccountService(t)

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(domain.Account{}, domain.ErrAccountNotFound)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:        "acc-1",
		Name:      "Account acc-1",
		Settings:  domain.AccountSettings{MemoryEnabled: true},
		UpdatedAt: now,
	}).Return(nil)

	require.NoError(t, service.SetMemoryEnabled(context.Background(), "acc-1", true))
}

func TestAccountServiceSetMemoryEnabledReturnsRepositoryError(t *testing.T) {
	service, repo, _, _, _ := newTestAccountService(t)

	getErr := errors.New("disk error")
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(domain.Account{}, getErr)

	err := service.SetMemoryEnabled(context.Background(), "acc-1", true)
	require.ErrorIs(t, err, getErr)
}

func TestAccountServiceSetLimitOverrideRestampsOpenPeriod(t *testing.T) {
	service, repo, ledger, limits, now := newTestAccountService(t)

	limit := int64(5_000)
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(domain.Account{ID: "acc-1", Name: "one"}, nil)
	repo.EXPECT().Save(mockAnyContext(), mock.MatchedBy(func(account domain.Account) bool {
		return account.Settings.LimitOverride != nil && *account.Settings.LimitOverride == 5_000 && account.UpdatedAt.Equal(now)
	})).Return(nil)
	limits.EXPECT().LimitFor(mockAnyContext(), domain.AccountID("acc-1")).Return(int64(5_000), nil)
	ledger.EXPECT().CurrentPeriod(mockAnyContext(), domain.AccountID("acc-1")).Return("2026-02", nil)
	ledger.EXPECT().SetLimit(mockAnyContext(), domain.AccountID("acc-1"), "2026-02", int64(5_000)).
		Return(domain.UsageRecord{Limit: 5_000}, nil)

	require.NoError(t, service.SetLimitOverride(context.Background(), "acc-1", &limit))
}

func TestAccountServiceSetLimitOverrideRestoresAccountWhenLedgerFails(t *testing.T) {
	service, repo, ledger, limits, _ := newTestAccountService(t)

	original := domain.Account{ID: "acc-1", Name: "one"}
	limit := int64(10)
	ledgerErr := domain.ErrLedgerUnavailable

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(original, nil)
	repo.EXPECT().Save(mockAnyContext(), mock.MatchedBy(func(account domain.Account) bool {
		return account.Settings.LimitOverride != nil
	})).Return(nil).Once()
	limits.EXPECT().LimitFor(mockAnyContext(), domain.AccountID("acc-1")).Return(int64(10), nil)
	ledger.EXPECT().CurrentPeriod(mockAnyContext(), domain.AccountID("acc-1")).Return("", ledgerErr)
	repo.EXPECT().Save(mockAnyContext(), original).Return(nil).Once()

	err := service.SetLimitOverride(context.Background(), "acc-1", &limit)
	require.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}

func TestAccountServiceSetLimitOverrideRejectsNegative(t *testing.T) {
	service, _, _, _, _ := newTestAccountService(t)

	limit := int64(-1)
	err := service.SetLimitOverride(context.Background(), "acc-1", &limit)
	require.ErrorIs(t, err, ErrInvalidLimit)
}

func TestAccountServiceAppendProfileFacts(t *testing.T) {
	service, repo, _, _, now := newTestAccountService(t)

	existing := domain.Account{
		ID:           "acc-1",
		ProfileFacts: []domain.ProfileFact{{Seq: 4, Kind: domain.FactKindTrait, Key: "humor", Value: "dry", Source: domain.FactSourceQuiz}},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(existing, nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID: "acc-1",
		ProfileFacts: []domain.ProfileFact{
			{Seq: 4, Kind: domain.FactKindTrait, Key: "humor", Value: "dry", Source: domain.FactSourceQuiz},
			{Seq: 5, Kind: domain.FactKindPreference, Key: "love language", Value: "quality time", Source: domain.FactSourceQuiz},
			{Seq: 6, Kind: domain.FactKindMemory, Key: "anniversary", Value: "June 3", Source: domain.FactSourceObservation},
		},
		UpdatedAt: now,
	}).Return(nil)

	account, err := service.AppendProfileFacts(context.Background(), "acc-1", []FactInput{
		{Kind: domain.FactKindPreference, Key: " love language ", Value: "quality time", Source: domain.FactSourceQuiz},
		{Kind: domain.FactKindMemory, Key: "anniversary", Value: "June 3"},
	})
	require.NoError(t, err)
	assert.Len(t, account.ProfileFacts, 3)
}

func TestAccountServiceAppendProfileFactsRejectsUnsafeContent(t *testing.T) {
	tests := []struct {
		name  string
		input FactInput
	}{
		{name: "transcript", input: FactInput{Kind: domain.FactKindMemory, Key: "fight", Value: `he said: "you always do this"`}},
		{name: "scorekeeping", input: FactInput{Kind: domain.FactKindTrait, Key: "chores", Value: "owes me 3 dinners"}},
		{name: "raw quiz", input: FactInput{Kind: domain.FactKindPreference, Key: "quiz", Value: "\nQ1: What calms you?\nA1: A walk alone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _, _, _ := newTestAccountService(t)

			_, err := service.AppendProfileFacts(context.Background(), "acc-1", []FactInput{tt.input})
			require.ErrorIs(t, err, ErrInvalidFact)
			require.ErrorIs(t, err, domain.ErrRedactionViolation)
		})
	}
}

func TestAccountServiceAppendProfileFactsRejectsTranscriptAcrossFacts(t *testing.T) {
	service, repo, _, _, _ := newTestAccountService(t)

	existing := domain.Account{
		ID: "acc-1",
		ProfileFacts: []domain.ProfileFact{
			{Seq: 1, Kind: domain.FactKindMemory, Key: "Partner", Value: "you never listen to me", Source: domain.FactSourceObservation},
		},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(existing, nil)

	_, err := service.AppendProfileFacts(context.Background(), "acc-1", []FactInput{
		{Kind: domain.FactKindMemory, Key: "Me", Value: "that is not true, you started it"},
		{Kind: domain.FactKindMemory, Key: "Partner", Value: "whatever, I am done"},
	})
	require.ErrorIs(t, err, ErrInvalidFact)
	require.ErrorIs(t, err, domain.ErrRedactionViolation)
	assert.Contains(t, err.Error(), string(domain.CategoryConflictTranscript))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAccountServiceAppendProfileFactsRejectsInvalidKind(t *testing.T) {
	service, _, _, _, _ := newTestAccountService(t)

	_, err := service.AppendProfileFacts(context.Background(), "acc-1", []FactInput{{Kind: "gossip", Key: "k", Value: "v"}})
	require.ErrorIs(t, err, ErrInvalidFact)

	_, err = service.AppendProfileFacts(context.Background(), "acc-1", []FactInput{{Kind: domain.FactKindTrait, Key: "k", Value: "v", Source: "rumor"}})
	require.ErrorIs(t, err, ErrInvalidFact)
	assert.Contains(t, err.Error(), "unsupported source")
}

func TestAccountServiceRemoveProfileFact(t *testing.T) {
	service, repo, _, _, _ := newTestAccountService(t)

	account := domain.Account{ID: "acc-1", ProfileFacts: []domain.ProfileFact{{Seq: 1, Key: "a"}, {Seq: 2, Key: "b"}}}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(account, nil).Twice()
	repo.EXPECT().Save(mockAnyContext(), mock.MatchedBy(func(saved domain.Account) bool {
		return len(saved.ProfileFacts) == 1 && saved.ProfileFacts[0].Seq == 2
	})).Return(nil)

	require.NoError(t, service.RemoveProfileFact(context.Background(), "acc-1", 1))
	require.ErrorIs(t, service.RemoveProfileFact(context.Background(), "acc-1", 9), ErrInvalidFact)
	assert.Len(t, account.ProfileFacts, 2)
}

func TestAccountServiceSettingsPersistAcrossServiceInstances(t *testing.T) {
	t.Parallel()

	cfg := viper.New()
	cfg.Set("accounts.path", filepath.Join(t.TempDir(), "accounts.toml"))

	repo, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)

	ledger := newMemoryLedger("2026-02", 100)
	serviceA := NewAccountService(repo, ledger, NewLimitResolver(repo, 100), nil, nil)
	require.NoError(t, serviceA.SetMemoryEnabled(context.Background(), "acc-1", true))
	limit := int64(250)
	require.NoError(t, serviceA.SetLimitOverride(context.Background(), "acc-1", &limit))
	_, err = serviceA.AppendProfileFacts(context.Background(), "acc-1", []FactInput{
		{Kind: domain.FactKindPreference, Key: "date night", Value: "Fridays"},
	})
	require.NoError(t, err)

	serviceB := NewAccountService(repo, ledger, NewLimitResolver(repo, 100), nil, nil)
	account, err := serviceB.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.True(t, account.Settings.MemoryEnabled)
	require.NotNil(t, account.Settings.LimitOverride)
	assert.Equal(t, int64(250), *account.Settings.LimitOverride)
	require.Len(t, account.ProfileFacts, 1)
	assert.Equal(t, "Fridays", account.ProfileFacts[0].Value)

	record, err := ledger.GetUsage(context.Background(), "acc-1", "2026-02")
	require.NoError(t, err)
	assert.Equal(t, int64(250), record.Limit)
}

func TestAccountServiceListAccountsSorted(t *testing.T) {
	service, repo, _, _, _ := newTestAccountService(t)

	repo.EXPECT().List(mockAnyContext()).Return([]domain.Account{{ID: "b"}, {ID: "a"}}, nil)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, domain.AccountID("a"), accounts[0].ID)
}
