package service

import (
	"fmt"

	"mneebet/models"

	"github.com/shopspring/decimal"
)

// ComputeReleasePlan returns the credits that settle an active bet for the
// given winner. The plan always names both parties and its total always
// equals the pot.
func ComputeReleasePlan(bet *models.Bet, winner models.Winner) (models.ReleasePlan, error) {
	if bet.Opponent == nil {
		return nil, fmt.Errorf("bet %d has no opponent to settle against", bet.ID)
	}
	opponent := *bet.Opponent
	pot := bet.Pot()

	switch winner {
	case models.WinnerCreator:
		return models.ReleasePlan{
			{Account: bet.Creator, Amount: pot, Type: models.TransactionTypePayout},
			{Account: opponent, Amount: decimal.Zero, Type: models.TransactionTypePayout},
		}, nil
	case models.WinnerOpponent:
		return models.ReleasePlan{
			{Account: bet.Creator, Amount: decimal.Zero, Type: models.TransactionTypePayout},
			{Account: opponent, Amount: pot, Type: models.TransactionTypePayout},
		}, nil
	case models.WinnerDraw:
		return models.ReleasePlan{
			{Account: bet.Creator, Amount: bet.Amount, Type: models.TransactionTypeDrawRefund},
			{Account: opponent, Amount: bet.Amount, Type: models.TransactionTypeDrawRefund},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidWinner, winner)
	}
}

// CancellationPlan returns the refund that closes an open bet
func CancellationPlan(bet *models.Bet) models.ReleasePlan {
	return models.ReleasePlan{
		{Account: bet.Creator, Amount: bet.Amount, Type: models.TransactionTypeCancelRefund},
	}
}
