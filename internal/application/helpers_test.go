package application

import (
	"context"
	"sync"
	"testing"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/layers"
	"github.com/bnema/pairchat/internal/redact"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

// memoryLedger is a single-period in-memory ledger for flow tests.
type memoryLedger struct {
	mu      sync.Mutex
	period  string
	limit   int64
	records map[domain.AccountID]domain.UsageRecord
}

func newMemoryLedger(period string, limit int64) *memoryLedger {
	return &memoryLedger{period: period, limit: limit, records: map[domain.AccountID]domain.UsageRecord{}}
}

func (l *memoryLedger) CurrentPeriod(context.Context, domain.AccountID) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.period, nil
}

func (l *memoryLedger) GetUsage(_ context.Context, id domain.AccountID, periodKey string) (domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordLocked(id, periodKey), nil
}

func (l *memoryLedger) Increment(_ context.Context, id domain.AccountID, periodKey string, tokens int64) (domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if periodKey != l.period {
		return domain.UsageRecord{}, domain.ErrPeriodClosed
	}
	record := l.recordLocked(id, periodKey)
	record.TokensConsumed += tokens
	l.records[id] = record
	return record, nil
}

func (l *memoryLedger) ResetPeriod(_ context.Context, id domain.AccountID, newPeriodKey string) (domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.period = newPeriodKey
	delete(l.records, id)
	return l.recordLocked(id, newPeriodKey), nil
}

func (l *memoryLedger) SetLimit(_ context.Context, id domain.AccountID, periodKey string, limit int64) (domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record := l.recordLocked(id, periodKey)
	record.Limit = limit
	l.records[id] = record
	return record, nil
}

func (l *memoryLedger) History(_ context.Context, id domain.AccountID) ([]domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return []domain.UsageRecord{l.recordLocked(id, l.period)}, nil
}

func (l *memoryLedger) recordLocked(id domain.AccountID, periodKey string) domain.UsageRecord {
	record, ok := l.records[id]
	if !ok || record.PeriodKey != periodKey {
		record = domain.UsageRecord{AccountID: id, PeriodKey: periodKey, Limit: l.limit}
		l.records[id] = record
	}
	return record
}

func newBuiltinComposer(t *testing.T, extra ...domain.PromptLayer) *PromptComposer {
	t.Helper()

	registry, err := layers.NewRegistry(append(layers.Builtin(), extra...)...)
	require.NoError(t, err)

	return NewPromptComposer(NewActivationEvaluator(registry), redact.NewScanner(), layers.IdentityBlock)
}
