package service

import (
	"context"
	"time"

	"mneebet/events"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// UsernameRepository defines the interface for the address-username registry
type UsernameRepository interface {
	// Create inserts the binding, returning ErrAlreadyRegistered or
	// ErrUsernameTaken when either side is already bound
	Create(ctx context.Context, username *models.Username) error

	// GetByAccount retrieves the binding for an address, nil if none
	GetByAccount(ctx context.Context, account common.Address) (*models.Username, error)

	// GetByUsername retrieves the binding for a handle, nil if none
	GetByUsername(ctx context.Context, username string) (*models.Username, error)
}

// TokenAccountRepository defines the interface for stake token balances
type TokenAccountRepository interface {
	// GetByAccount retrieves an account's position, nil if it never held tokens
	GetByAccount(ctx context.Context, account common.Address) (*models.TokenAccount, error)

	// GetOrCreateForUpdate retrieves an account's position, creating an empty
	// one if needed, and locks it for the rest of the unit of work
	GetOrCreateForUpdate(ctx context.Context, account common.Address) (*models.TokenAccount, error)

	// Update persists balance and allowance
	Update(ctx context.Context, tokenAccount *models.TokenAccount) error
}

// EscrowRepository defines the interface for funds held on behalf of bets
type EscrowRepository interface {
	// GetByBetForUpdate returns every holding of a bet ordered by address, locked
	GetByBetForUpdate(ctx context.Context, betID int64) ([]*models.EscrowHolding, error)

	// Add increases (or creates) the holding for a bet and account
	Add(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error

	// SetAmount overwrites the holding for a bet and account
	SetAmount(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error

	// TotalByBet sums all holdings of a bet
	TotalByBet(ctx context.Context, betID int64) (decimal.Decimal, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// NextID reserves the next sequential bet id
	NextID(ctx context.Context) (int64, error)

	// Create inserts a bet with an id obtained from NextID
	Create(ctx context.Context, bet *models.Bet) error

	// GetByID retrieves a bet by its ID, nil if missing
	GetByID(ctx context.Context, id int64) (*models.Bet, error)

	// GetByIDForUpdate retrieves and locks a bet for the rest of the unit of work
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Bet, error)

	// Update persists opponent, status, winner and timestamps
	Update(ctx context.Context, bet *models.Bet) error

	// Count returns the number of bets ever created, which is also the next id
	Count(ctx context.Context) (int64, error)

	// ListRange returns bets with start <= id < end in id order
	ListRange(ctx context.Context, start, end int64) ([]*models.Bet, error)

	// ListByAccount returns bets where the account is creator, opponent or judge
	ListByAccount(ctx context.Context, account common.Address) ([]*models.Bet, error)

	// ListByStatus returns bets in the given status in id order
	ListByStatus(ctx context.Context, status models.BetStatus) ([]*models.Bet, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAccount returns the most recent entries for an account, newest first
	GetByAccount(ctx context.Context, account common.Address, limit int) ([]*models.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction and discards queued events
	Rollback() error

	// Repository getters
	UsernameRepository() UsernameRepository
	TokenAccountRepository() TokenAccountRepository
	EscrowRepository() EscrowRepository
	BetRepository() BetRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Clock supplies the current time to time-dependent rules
type Clock interface {
	Now() time.Time
}

// Escrow moves stake tokens between accounts and bet custody inside one unit of work
type Escrow interface {
	// Lock pulls amount from the account's allowance and balance into the bet
	Lock(ctx context.Context, account common.Address, amount decimal.Decimal, betID int64) error

	// Release credits amount from the bet's custody to the account
	Release(ctx context.Context, account common.Address, amount decimal.Decimal, betID int64, kind models.TransactionType) error

	BalanceOf(ctx context.Context, account common.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, account common.Address) (decimal.Decimal, error)
}

// RegistryService defines the interface for username registration
type RegistryService interface {
	// Register permanently binds a username to an account
	Register(ctx context.Context, account common.Address, username string) (*models.Username, error)

	// LookupByAccount returns the account's username, if any
	LookupByAccount(ctx context.Context, account common.Address) (string, bool, error)

	// LookupByUsername returns the account owning a username, if any
	LookupByUsername(ctx context.Context, username string) (common.Address, bool, error)
}

// TokenService defines the interface for the stake token surface
type TokenService interface {
	Info() models.TokenInfo
	BalanceOf(ctx context.Context, account common.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, account common.Address) (decimal.Decimal, error)

	// Approve sets how much the engine may pull from the owner's balance
	Approve(ctx context.Context, owner common.Address, amount decimal.Decimal) error

	// Mint credits test tokens to an account
	Mint(ctx context.Context, account common.Address, amount decimal.Decimal) (decimal.Decimal, error)

	// EscrowedTotal returns what a bet currently holds in custody
	EscrowedTotal(ctx context.Context, betID int64) (decimal.Decimal, error)

	// History returns recent balance movements for an account
	History(ctx context.Context, account common.Address, limit int) ([]*models.BalanceHistory, error)
}

// TransferService defines the interface for account-to-account token transfers
type TransferService interface {
	Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal) (*models.TransferResult, error)
}

// BetService defines the interface for bet lifecycle transitions
type BetService interface {
	// CreateBet opens a bet and locks the creator's stake
	CreateBet(ctx context.Context, params models.BetParams) (*models.Bet, error)

	// AcceptBet locks the caller's stake and activates the bet
	AcceptBet(ctx context.Context, betID int64, caller common.Address) (*models.Bet, error)

	// CancelBet refunds the creator and closes an open bet
	CancelBet(ctx context.Context, betID int64, caller common.Address) (*models.Bet, error)

	// ResolveBet settles an active bet according to the judge's decision
	ResolveBet(ctx context.Context, betID int64, caller common.Address, winner models.Winner) (*models.Bet, error)
}

// QueryService defines the interface for read-only bet projections
type QueryService interface {
	GetBet(ctx context.Context, betID int64) (*models.Bet, error)
	ListRange(ctx context.Context, start, end int64) ([]*models.Bet, error)
	ListByAccount(ctx context.Context, account common.Address) ([]*models.Bet, error)
	ListByStatus(ctx context.Context, status models.BetStatus) ([]*models.Bet, error)
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context, account common.Address) (*models.AccountBetStats, error)
}
