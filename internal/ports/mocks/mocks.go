// Package mocks provides testify mocks for the ports interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// AccountRepository

type MockAccountRepository struct {
	mock.Mock
}

var _ ports.AccountRepository = (*MockAccountRepository)(nil)

func NewMockAccountRepository(t testingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	register(&m.Mock, t)
	return m
}

type MockAccountRepositoryExpecter struct {
	mock *mock.Mock
}

func (m *MockAccountRepository) EXPECT() *MockAccountRepositoryExpecter {
	return &MockAccountRepositoryExpecter{mock: &m.Mock}
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (e *MockAccountRepositoryExpecter) GetByID(ctx, id any) *mock.Call {
	return e.mock.On("GetByID", ctx, id)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]domain.Account)
	return accounts, args.Error(1)
}

func (e *MockAccountRepositoryExpecter) List(ctx any) *mock.Call {
	return e.mock.On("List", ctx)
}

func (m *MockAccountRepository) Save(ctx context.Context, account domain.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (e *MockAccountRepositoryExpecter) Save(ctx, account any) *mock.Call {
	return e.mock.On("Save", ctx, account)
}

func (m *MockAccountRepository) AdvanceTurn(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (e *MockAccountRepositoryExpecter) AdvanceTurn(ctx, id any) *mock.Call {
	return e.mock.On("AdvanceTurn", ctx, id)
}

// UsageLedger

type MockUsageLedger struct {
	mock.Mock
}

var _ ports.UsageLedger = (*MockUsageLedger)(nil)

func NewMockUsageLedger(t testingT) *MockUsageLedger {
	m := &MockUsageLedger{}
	register(&m.Mock, t)
	return m
}

type MockUsageLedgerExpecter struct {
	mock *mock.Mock
}

func (m *MockUsageLedger) EXPECT() *MockUsageLedgerExpecter {
	return &MockUsageLedgerExpecter{mock: &m.Mock}
}

func (m *MockUsageLedger) CurrentPeriod(ctx context.Context, id domain.AccountID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (e *MockUsageLedgerExpecter) CurrentPeriod(ctx, id any) *mock.Call {
	return e.mock.On("CurrentPeriod", ctx, id)
}

func (m *MockUsageLedger) GetUsage(ctx context.Context, id domain.AccountID, periodKey string) (domain.UsageRecord, error) {
	args := m.Called(ctx, id, periodKey)
	return args.Get(0).(domain.UsageRecord), args.Error(1)
}

func (e *MockUsageLedgerExpecter) GetUsage(ctx, id, periodKey any) *mock.Call {
	return e.mock.On("GetUsage", ctx, id, periodKey)
}

func (m *MockUsageLedger) Increment(ctx context.Context, id domain.AccountID, periodKey string, tokens int64) (domain.UsageRecord, error) {
	args := m.Called(ctx, id, periodKey, tokens)
	return args.Get(0).(domain.UsageRecord), args.Error(1)
}

func (e *MockUsageLedgerExpecter) Increment(ctx, id, periodKey, tokens any) *mock.Call {
	return e.mock.On("Increment", ctx, id, periodKey, tokens)
}

func (m *MockUsageLedger) ResetPeriod(ctx context.Context, id domain.AccountID, newPeriodKey string) (domain.UsageRecord, error) {
	args := m.Called(ctx, id, newPeriodKey)
	return args.Get(0).(domain.UsageRecord), args.Error(1)
}

func (e *MockUsageLedgerExpecter) ResetPeriod(ctx, id, newPeriodKey any) *mock.Call {
	return e.mock.On("ResetPeriod", ctx, id, newPeriodKey)
}

func (m *MockUsageLedger) SetLimit(ctx context.Context, id domain.AccountID, periodKey string, limit int64) (domain.UsageRecord, error) {
	args := m.Called(ctx, id, periodKey, limit)
	return args.Get(0).(domain.UsageRecord), args.Error(1)
}

func (e *MockUsageLedgerExpecter) SetLimit(ctx, id, periodKey, limit any) *mock.Call {
	return e.mock.On("SetLimit", ctx, id, periodKey, limit)
}

func (m *MockUsageLedger) History(ctx context.Context, id domain.AccountID) ([]domain.UsageRecord, error) {
	args := m.Called(ctx, id)
	records, _ := args.Get(0).([]domain.UsageRecord)
	return records, args.Error(1)
}

func (e *MockUsageLedgerExpecter) History(ctx, id any) *mock.Call {
	return e.mock.On("History", ctx, id)
}

// ReconciliationQueue

type MockReconciliationQueue struct {
	mock.Mock
}

var _ ports.ReconciliationQueue = (*MockReconciliationQueue)(nil)

func NewMockReconciliationQueue(t testingT) *MockReconciliationQueue {
	m := &MockReconciliationQueue{}
	register(&m.Mock, t)
	return m
}

type MockReconciliationQueueExpecter struct {
	mock *mock.Mock
}

func (m *MockReconciliationQueue) EXPECT() *MockReconciliationQueueExpecter {
	return &MockReconciliationQueueExpecter{mock: &m.Mock}
}

func (m *MockReconciliationQueue) Flag(ctx context.Context, entry domain.ReconciliationEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (e *MockReconciliationQueueExpecter) Flag(ctx, entry any) *mock.Call {
	return e.mock.On("Flag", ctx, entry)
}

func (m *MockReconciliationQueue) Pending(ctx context.Context) ([]domain.ReconciliationEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]domain.ReconciliationEntry)
	return entries, args.Error(1)
}

func (e *MockReconciliationQueueExpecter) Pending(ctx any) *mock.Call {
	return e.mock.On("Pending", ctx)
}

func (m *MockReconciliationQueue) Resolve(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (e *MockReconciliationQueueExpecter) Resolve(ctx, id any) *mock.Call {
	return e.mock.On("Resolve", ctx, id)
}

// ModelClient

type MockModelClient struct {
	mock.Mock
}

var _ ports.ModelClient = (*MockModelClient)(nil)

func NewMockModelClient(t testingT) *MockModelClient {
	m := &MockModelClient{}
	register(&m.Mock, t)
	return m
}

type MockModelClientExpecter struct {
	mock *mock.Mock
}

func (m *MockModelClient) EXPECT() *MockModelClientExpecter {
	return &MockModelClientExpecter{mock: &m.Mock}
}

func (m *MockModelClient) Complete(ctx context.Context, req ports.ModelRequest) (ports.ModelResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.ModelResponse), args.Error(1)
}

func (e *MockModelClientExpecter) Complete(ctx, req any) *mock.Call {
	return e.mock.On("Complete", ctx, req)
}

// LimitPolicy

type MockLimitPolicy struct {
	mock.Mock
}

var _ ports.LimitPolicy = (*MockLimitPolicy)(nil)

func NewMockLimitPolicy(t testingT) *MockLimitPolicy {
	m := &MockLimitPolicy{}
	register(&m.Mock, t)
	return m
}

type MockLimitPolicyExpecter struct {
	mock *mock.Mock
}

func (m *MockLimitPolicy) EXPECT() *MockLimitPolicyExpecter {
	return &MockLimitPolicyExpecter{mock: &m.Mock}
}

func (m *MockLimitPolicy) LimitFor(ctx context.Context, id domain.AccountID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (e *MockLimitPolicyExpecter) LimitFor(ctx, id any) *mock.Call {
	return e.mock.On("LimitFor", ctx, id)
}

// Clock

type MockClock struct {
	mock.Mock
}

var _ ports.Clock = (*MockClock)(nil)

func NewMockClock(t testingT) *MockClock {
	m := &MockClock{}
	register(&m.Mock, t)
	return m
}

type MockClockExpecter struct {
	mock *mock.Mock
}

func (m *MockClock) EXPECT() *MockClockExpecter {
	return &MockClockExpecter{mock: &m.Mock}
}

func (m *MockClock) Now() time.Time {
	return m.Called().Get(0).(time.Time)
}

func (e *MockClockExpecter) Now() *mock.Call {
	return e.mock.On("Now")
}
