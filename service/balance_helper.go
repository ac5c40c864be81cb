package service

import (
	"context"
	"fmt"

	"mneebet/events"
	"mneebet/models"
)

// RecordBalanceChange records a balance history entry and queues the matching
// event. Every balance movement in the system goes through here.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Flushed only after the transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		Account:         history.Account.Hex(),
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
		BetID:           history.RelatedBetID,
	})

	return nil
}
