package service

import (
	"context"
	"fmt"

	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// uowEscrow implements Escrow on top of a unit of work's token and escrow repositories
type uowEscrow struct {
	uow UnitOfWork
}

// NewEscrow binds an escrow adapter to an open unit of work
func NewEscrow(uow UnitOfWork) Escrow {
	return &uowEscrow{uow: uow}
}

// Lock pulls amount from the account into the bet's custody. Allowance is
// checked before balance.
func (e *uowEscrow) Lock(ctx context.Context, account common.Address, amount decimal.Decimal, betID int64) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: lock amount must be positive", ErrInvalidAmount)
	}

	tokenAccount, err := e.uow.TokenAccountRepository().GetOrCreateForUpdate(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get token account: %w", err)
	}

	if tokenAccount.Allowance.LessThan(amount) {
		return fmt.Errorf("%w: approved %s, need %s", ErrInsufficientAllowance, tokenAccount.Allowance, amount)
	}
	if tokenAccount.Balance.LessThan(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, tokenAccount.Balance, amount)
	}

	balanceBefore := tokenAccount.Balance
	tokenAccount.Balance = tokenAccount.Balance.Sub(amount)
	tokenAccount.Allowance = tokenAccount.Allowance.Sub(amount)

	if err := e.uow.TokenAccountRepository().Update(ctx, tokenAccount); err != nil {
		return fmt.Errorf("failed to debit token account: %w", err)
	}
	if err := e.uow.EscrowRepository().Add(ctx, betID, account, amount); err != nil {
		return fmt.Errorf("failed to add escrow holding: %w", err)
	}

	history := &models.BalanceHistory{
		Account:         account,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    tokenAccount.Balance,
		ChangeAmount:    amount.Neg(),
		TransactionType: models.TransactionTypeStakeLock,
		TransactionMetadata: map[string]any{
			"bet_id": betID,
		},
		RelatedBetID: &betID,
	}
	if err := RecordBalanceChange(ctx, e.uow, history); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"account": account.Hex(),
		"betID":   betID,
		"amount":  amount.String(),
	}).Debug("Locked stake in escrow")

	return nil
}

// Release credits amount out of the bet's custody. The recipient's own
// holding is drawn down first, then the remaining holdings in address order.
// A zero amount is a no-op.
func (e *uowEscrow) Release(ctx context.Context, account common.Address, amount decimal.Decimal, betID int64, kind models.TransactionType) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: release amount cannot be negative", ErrInvalidAmount)
	}
	if amount.IsZero() {
		return nil
	}

	holdings, err := e.uow.EscrowRepository().GetByBetForUpdate(ctx, betID)
	if err != nil {
		return fmt.Errorf("failed to get escrow holdings: %w", err)
	}

	available := decimal.Zero
	for _, h := range holdings {
		available = available.Add(h.Amount)
	}
	if available.LessThan(amount) {
		return fmt.Errorf("%w: bet %d holds %s, release needs %s", ErrEscrowShortfall, betID, available, amount)
	}

	remaining := amount
	for _, h := range orderForRelease(holdings, account) {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(h.Amount, remaining)
		if take.IsZero() {
			continue
		}
		if err := e.uow.EscrowRepository().SetAmount(ctx, betID, h.Account, h.Amount.Sub(take)); err != nil {
			return fmt.Errorf("failed to debit escrow holding: %w", err)
		}
		remaining = remaining.Sub(take)
	}

	tokenAccount, err := e.uow.TokenAccountRepository().GetOrCreateForUpdate(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get token account: %w", err)
	}

	balanceBefore := tokenAccount.Balance
	tokenAccount.Balance = tokenAccount.Balance.Add(amount)
	if err := e.uow.TokenAccountRepository().Update(ctx, tokenAccount); err != nil {
		return fmt.Errorf("failed to credit token account: %w", err)
	}

	history := &models.BalanceHistory{
		Account:         account,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    tokenAccount.Balance,
		ChangeAmount:    amount,
		TransactionType: kind,
		TransactionMetadata: map[string]any{
			"bet_id": betID,
		},
		RelatedBetID: &betID,
	}
	if err := RecordBalanceChange(ctx, e.uow, history); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"account": account.Hex(),
		"betID":   betID,
		"amount":  amount.String(),
		"type":    kind,
	}).Debug("Released escrow")

	return nil
}

func (e *uowEscrow) BalanceOf(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	tokenAccount, err := e.uow.TokenAccountRepository().GetByAccount(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get token account: %w", err)
	}
	if tokenAccount == nil {
		return decimal.Zero, nil
	}
	return tokenAccount.Balance, nil
}

func (e *uowEscrow) Allowance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	tokenAccount, err := e.uow.TokenAccountRepository().GetByAccount(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get token account: %w", err)
	}
	if tokenAccount == nil {
		return decimal.Zero, nil
	}
	return tokenAccount.Allowance, nil
}

// orderForRelease puts the recipient's holding first, keeping the rest in their given order
func orderForRelease(holdings []*models.EscrowHolding, recipient common.Address) []*models.EscrowHolding {
	ordered := make([]*models.EscrowHolding, 0, len(holdings))
	for _, h := range holdings {
		if h.Account == recipient {
			ordered = append(ordered, h)
		}
	}
	for _, h := range holdings {
		if h.Account != recipient {
			ordered = append(ordered, h)
		}
	}
	return ordered
}
