package service

import (
	"context"
	"fmt"

	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type transferService struct {
	uowFactory UnitOfWorkFactory
}

// NewTransferService creates a new transfer service
func NewTransferService(uowFactory UnitOfWorkFactory) TransferService {
	return &transferService{
		uowFactory: uowFactory,
	}
}

// Transfer moves spendable tokens between two accounts. Escrowed stakes
// and allowances are untouched.
func (s *transferService) Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal) (*models.TransferResult, error) {
	if models.IsZeroAccount(from) || models.IsZeroAccount(to) {
		return nil, fmt.Errorf("%w: transfer to or from the zero address", models.ErrInvalidAddress)
	}
	if from == to {
		return nil, ErrSelfTransfer
	}
	if !amount.IsInteger() || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be a positive whole number of base units", ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := uow.TokenAccountRepository()

	// Lock both rows in address order so opposing transfers cannot deadlock
	first, second := from, to
	if first.Cmp(second) > 0 {
		first, second = second, first
	}
	locked := make(map[common.Address]*models.TokenAccount, 2)
	for _, account := range []common.Address{first, second} {
		tokenAccount, err := accounts.GetOrCreateForUpdate(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("failed to get token account: %w", err)
		}
		locked[account] = tokenAccount
	}
	sender, recipient := locked[from], locked[to]

	if sender.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, sender.Balance, amount)
	}

	senderBefore, recipientBefore := sender.Balance, recipient.Balance
	sender.Balance = sender.Balance.Sub(amount)
	recipient.Balance = recipient.Balance.Add(amount)

	if err := accounts.Update(ctx, sender); err != nil {
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}
	if err := accounts.Update(ctx, recipient); err != nil {
		return nil, fmt.Errorf("failed to credit recipient: %w", err)
	}

	outMetadata := map[string]any{"recipient": to.Hex()}
	inMetadata := map[string]any{"sender": from.Hex()}
	if binding, err := uow.UsernameRepository().GetByAccount(ctx, to); err == nil && binding != nil {
		outMetadata["recipient_username"] = binding.Username
	}
	if binding, err := uow.UsernameRepository().GetByAccount(ctx, from); err == nil && binding != nil {
		inMetadata["sender_username"] = binding.Username
	}

	if err := RecordBalanceChange(ctx, uow, &models.BalanceHistory{
		Account:             from,
		BalanceBefore:       senderBefore,
		BalanceAfter:        sender.Balance,
		ChangeAmount:        amount.Neg(),
		TransactionType:     models.TransactionTypeTransferOut,
		TransactionMetadata: outMetadata,
	}); err != nil {
		return nil, fmt.Errorf("failed to record sender balance change: %w", err)
	}

	if err := RecordBalanceChange(ctx, uow, &models.BalanceHistory{
		Account:             to,
		BalanceBefore:       recipientBefore,
		BalanceAfter:        recipient.Balance,
		ChangeAmount:        amount,
		TransactionType:     models.TransactionTypeTransferIn,
		TransactionMetadata: inMetadata,
	}); err != nil {
		return nil, fmt.Errorf("failed to record recipient balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"from":   models.ShortAccount(from),
		"to":     models.ShortAccount(to),
		"amount": amount.String(),
	}).Info("Tokens transferred")

	return &models.TransferResult{
		From:          from,
		To:            to,
		Amount:        amount,
		SenderBalance: sender.Balance,
	}, nil
}
