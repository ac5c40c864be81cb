package service

import (
	"context"
	"fmt"

	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// TokenConfig describes the stake token and its test faucet
type TokenConfig struct {
	Symbol          string
	Decimals        int32
	FaucetEnabled   bool
	FaucetMaxAmount decimal.Decimal // base units per call
}

type tokenService struct {
	uowFactory UnitOfWorkFactory
	config     TokenConfig
}

// NewTokenService creates a new token service
func NewTokenService(uowFactory UnitOfWorkFactory, config TokenConfig) TokenService {
	return &tokenService{
		uowFactory: uowFactory,
		config:     config,
	}
}

func (s *tokenService) Info() models.TokenInfo {
	return models.TokenInfo{
		Symbol:   s.config.Symbol,
		Decimals: s.config.Decimals,
	}
}

func (s *tokenService) BalanceOf(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return NewEscrow(uow).BalanceOf(ctx, account)
}

func (s *tokenService) Allowance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return NewEscrow(uow).Allowance(ctx, account)
}

// Approve replaces the owner's allowance, like an ERC-20 approve
func (s *tokenService) Approve(ctx context.Context, owner common.Address, amount decimal.Decimal) error {
	if models.IsZeroAccount(owner) {
		return fmt.Errorf("%w: zero address cannot approve", models.ErrInvalidAddress)
	}
	if !amount.IsInteger() || amount.IsNegative() || models.ExceedsMaxAmount(amount) {
		return fmt.Errorf("%w: allowance must be a non-negative whole number of base units", ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tokenAccount, err := uow.TokenAccountRepository().GetOrCreateForUpdate(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to get token account: %w", err)
	}
	tokenAccount.Allowance = amount
	if err := uow.TokenAccountRepository().Update(ctx, tokenAccount); err != nil {
		return fmt.Errorf("failed to update allowance: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"owner":     owner.Hex(),
		"allowance": amount.String(),
	}).Debug("Allowance approved")

	return nil
}

// Mint credits faucet tokens and returns the new balance
func (s *tokenService) Mint(ctx context.Context, account common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if !s.config.FaucetEnabled {
		return decimal.Zero, ErrFaucetDisabled
	}
	if models.IsZeroAccount(account) {
		return decimal.Zero, fmt.Errorf("%w: cannot mint to the zero address", models.ErrInvalidAddress)
	}
	if !amount.IsInteger() || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: mint amount must be a positive whole number of base units", ErrInvalidAmount)
	}
	if amount.GreaterThan(s.config.FaucetMaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: at most %s per call", ErrFaucetLimitExceeded, s.config.FaucetMaxAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tokenAccount, err := uow.TokenAccountRepository().GetOrCreateForUpdate(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get token account: %w", err)
	}
	balanceBefore := tokenAccount.Balance
	tokenAccount.Balance = tokenAccount.Balance.Add(amount)
	if err := uow.TokenAccountRepository().Update(ctx, tokenAccount); err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit token account: %w", err)
	}

	history := &models.BalanceHistory{
		Account:         account,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    tokenAccount.Balance,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeMint,
		TransactionMetadata: map[string]any{
			"source": "faucet",
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return decimal.Zero, err
	}

	if err := uow.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tokenAccount.Balance, nil
}

// EscrowedTotal returns what a bet currently holds in custody
func (s *tokenService) EscrowedTotal(ctx context.Context, betID int64) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	total, err := uow.EscrowRepository().TotalByBet(ctx, betID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum escrow for bet %d: %w", betID, err)
	}
	return total, nil
}

// History returns recent balance movements for an account, newest first
func (s *tokenService) History(ctx context.Context, account common.Address, limit int) ([]*models.BalanceHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().GetByAccount(ctx, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}
