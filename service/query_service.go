package service

import (
	"context"
	"fmt"

	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type queryService struct {
	uowFactory UnitOfWorkFactory
}

// NewQueryService creates a new read-only bet query service
func NewQueryService(uowFactory UnitOfWorkFactory) QueryService {
	return &queryService{uowFactory: uowFactory}
}

// GetBet returns a bet or ErrBetNotFound
func (s *queryService) GetBet(ctx context.Context, betID int64) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, fmt.Errorf("%w: %d", ErrBetNotFound, betID)
	}
	return bet, nil
}

// ListRange returns bets with start <= id < end. The range is clamped to the
// bets that exist, so an oversized end simply returns everything after start.
func (s *queryService) ListRange(ctx context.Context, start, end int64) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	count, err := uow.BetRepository().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bets: %w", err)
	}

	start = max(start, 0)
	end = min(end, count)
	if start >= end {
		return []*models.Bet{}, nil
	}

	bets, err := uow.BetRepository().ListRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets %d-%d: %w", start, end, err)
	}
	return bets, nil
}

// ListByAccount returns every bet the account created, accepted or judges, oldest first
func (s *queryService) ListByAccount(ctx context.Context, account common.Address) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for %s: %w", account.Hex(), err)
	}
	return bets, nil
}

// ListByStatus returns every bet in a status, oldest first
func (s *queryService) ListByStatus(ctx context.Context, status models.BetStatus) ([]*models.Bet, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown bet status %q", status)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s bets: %w", status, err)
	}
	return bets, nil
}

// Count returns the number of bets ever created, which is also the next id
func (s *queryService) Count(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	count, err := uow.BetRepository().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count bets: %w", err)
	}
	return count, nil
}

// Stats aggregates an account's record across all of its bets
func (s *queryService) Stats(ctx context.Context, account common.Address) (*models.AccountBetStats, error) {
	bets, err := s.ListByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return computeAccountStats(account, bets), nil
}

func computeAccountStats(account common.Address, bets []*models.Bet) *models.AccountBetStats {
	stats := &models.AccountBetStats{
		Account:       account,
		ByStatus:      make(map[models.BetStatus]int),
		TotalStaked:   decimal.Zero,
		TotalWinnings: decimal.Zero,
	}

	for _, bet := range bets {
		if bet.Judge == account {
			stats.TotalJudged++
		}
		if !bet.IsParticipant(account) {
			continue
		}

		stats.TotalBets++
		stats.ByStatus[bet.Status]++
		// A named opponent has staked nothing until they accept
		if bet.Creator == account || bet.AcceptedAt != nil {
			stats.TotalStaked = stats.TotalStaked.Add(bet.Amount)
		}

		if bet.Status != models.BetStatusResolved {
			continue
		}
		if bet.Winner == models.WinnerDraw {
			stats.TotalDrawn++
			continue
		}
		if winner, ok := bet.WinnerAccount(); ok && winner == account {
			stats.TotalWon++
			stats.TotalWinnings = stats.TotalWinnings.Add(bet.Pot())
		} else {
			stats.TotalLost++
		}
	}

	return stats
}
