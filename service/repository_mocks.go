package service

import (
	"context"

	"mneebet/events"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUsernameRepository is a mock implementation of UsernameRepository
type MockUsernameRepository struct {
	mock.Mock
}

func (m *MockUsernameRepository) Create(ctx context.Context, username *models.Username) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockUsernameRepository) GetByAccount(ctx context.Context, account common.Address) (*models.Username, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Username), args.Error(1)
}

func (m *MockUsernameRepository) GetByUsername(ctx context.Context, username string) (*models.Username, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Username), args.Error(1)
}

// MockTokenAccountRepository is a mock implementation of TokenAccountRepository
type MockTokenAccountRepository struct {
	mock.Mock
}

func (m *MockTokenAccountRepository) GetByAccount(ctx context.Context, account common.Address) (*models.TokenAccount, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockTokenAccountRepository) GetOrCreateForUpdate(ctx context.Context, account common.Address) (*models.TokenAccount, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockTokenAccountRepository) Update(ctx context.Context, tokenAccount *models.TokenAccount) error {
	args := m.Called(ctx, tokenAccount)
	return args.Error(0)
}

// MockEscrowRepository is a mock implementation of EscrowRepository
type MockEscrowRepository struct {
	mock.Mock
}

func (m *MockEscrowRepository) GetByBetForUpdate(ctx context.Context, betID int64) ([]*models.EscrowHolding, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EscrowHolding), args.Error(1)
}

func (m *MockEscrowRepository) Add(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error {
	args := m.Called(ctx, betID, account, amount)
	return args.Error(0)
}

func (m *MockEscrowRepository) SetAmount(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error {
	args := m.Called(ctx, betID, account, amount)
	return args.Error(0)
}

func (m *MockEscrowRepository) TotalByBet(ctx context.Context, betID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, betID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) NextID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) Update(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetRepository) ListRange(ctx context.Context, start, end int64) ([]*models.Bet, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListByAccount(ctx context.Context, account common.Address) ([]*models.Bet, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListByStatus(ctx context.Context, status models.BetStatus) ([]*models.Bet, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, account common.Address, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, account, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests only set expectations on the ones they exercise.
type MockUnitOfWork struct {
	mock.Mock
	usernameRepo       UsernameRepository
	tokenAccountRepo   TokenAccountRepository
	escrowRepo         EscrowRepository
	betRepo            BetRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventBus           EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(usernameRepo UsernameRepository, tokenAccountRepo TokenAccountRepository, escrowRepo EscrowRepository, betRepo BetRepository, balanceHistoryRepo BalanceHistoryRepository) {
	m.usernameRepo = usernameRepo
	m.tokenAccountRepo = tokenAccountRepo
	m.escrowRepo = escrowRepo
	m.betRepo = betRepo
	m.balanceHistoryRepo = balanceHistoryRepo
}

// SetEventBus wires the publisher returned by EventBus
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UsernameRepository() UsernameRepository {
	return m.usernameRepo
}

func (m *MockUnitOfWork) TokenAccountRepository() TokenAccountRepository {
	return m.tokenAccountRepo
}

func (m *MockUnitOfWork) EscrowRepository() EscrowRepository {
	return m.escrowRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		m.eventBus = events.NewTransactionalBus(events.NewBus())
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
