package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mneebet/events"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// BetRules are the creation and acceptance limits enforced by the ledger
type BetRules struct {
	MinAmount           decimal.Decimal // base units
	MinDeadlineBuffer   time.Duration
	MinTermsLength      int
	RequireNeutralJudge bool // reject a judge who is, or becomes, the opponent
}

// DefaultBetRules returns the limits the front-end validates against
func DefaultBetRules() BetRules {
	return BetRules{
		MinAmount:         decimal.NewFromInt(1),
		MinDeadlineBuffer: 5 * time.Minute,
		MinTermsLength:    10,
	}
}

type betService struct {
	uowFactory UnitOfWorkFactory
	rules      BetRules
	clock      Clock
}

// NewBetService creates a new bet ledger service
func NewBetService(uowFactory UnitOfWorkFactory, rules BetRules, clock Clock) BetService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &betService{
		uowFactory: uowFactory,
		rules:      rules,
		clock:      clock,
	}
}

// CreateBet opens a bet and locks the creator's stake
func (s *betService) CreateBet(ctx context.Context, params models.BetParams) (*models.Bet, error) {
	now := s.clock.Now()
	if err := s.validateParams(params, now); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	id, err := uow.BetRepository().NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assign bet id: %w", err)
	}

	bet := &models.Bet{
		ID:        id,
		Creator:   params.Creator,
		Opponent:  params.Opponent,
		Judge:     params.Judge,
		Amount:    params.Amount,
		Terms:     params.Terms,
		Deadline:  params.Deadline.UTC(),
		Status:    models.BetStatusOpen,
		Winner:    models.WinnerNone,
		CreatedAt: now,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	if err := NewEscrow(uow).Lock(ctx, bet.Creator, bet.Amount, bet.ID); err != nil {
		return nil, fmt.Errorf("failed to lock creator stake: %w", err)
	}

	opponent := ""
	if bet.Opponent != nil {
		opponent = bet.Opponent.Hex()
	}
	uow.EventBus().Publish(events.BetCreatedEvent{
		BetID:    bet.ID,
		Creator:  bet.Creator.Hex(),
		Opponent: opponent,
		Judge:    bet.Judge.Hex(),
		Amount:   bet.Amount,
		Deadline: bet.Deadline.Unix(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":     bet.ID,
		"creator":   bet.Creator.Hex(),
		"judge":     bet.Judge.Hex(),
		"amount":    bet.Amount.String(),
		"openOffer": bet.IsOpenChallenge(),
	}).Info("Bet created")

	return bet, nil
}

// AcceptBet locks the caller's stake and activates the bet
func (s *betService) AcceptBet(ctx context.Context, betID int64, caller common.Address) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := s.lockBet(ctx, uow, betID)
	if err != nil {
		return nil, err
	}

	if bet.Status != models.BetStatusOpen {
		return nil, fmt.Errorf("%w: bet %d is %s", ErrNotOpen, betID, bet.Status)
	}
	if models.IsZeroAccount(caller) || !bet.CanBeAccepted(caller) {
		return nil, fmt.Errorf("%w: %s cannot accept bet %d", ErrNotAuthorizedOpponent, caller.Hex(), betID)
	}
	if s.rules.RequireNeutralJudge && caller == bet.Judge {
		return nil, fmt.Errorf("%w: the judge cannot take a side", ErrNotAuthorizedOpponent)
	}

	if err := NewEscrow(uow).Lock(ctx, caller, bet.Amount, bet.ID); err != nil {
		return nil, fmt.Errorf("failed to lock opponent stake: %w", err)
	}

	if err := transition(bet, models.BetStatusActive); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	opponent := caller
	bet.Opponent = &opponent
	bet.AcceptedAt = &now

	if err := uow.BetRepository().Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to update bet: %w", err)
	}

	uow.EventBus().Publish(events.BetAcceptedEvent{
		BetID:    bet.ID,
		Opponent: caller.Hex(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":    bet.ID,
		"opponent": caller.Hex(),
	}).Info("Bet accepted")

	return bet, nil
}

// CancelBet refunds the creator and closes an open bet
func (s *betService) CancelBet(ctx context.Context, betID int64, caller common.Address) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := s.lockBet(ctx, uow, betID)
	if err != nil {
		return nil, err
	}

	if bet.Status != models.BetStatusOpen {
		return nil, fmt.Errorf("%w: bet %d is %s", ErrNotOpen, betID, bet.Status)
	}
	if !bet.CanBeCancelled(caller) {
		return nil, fmt.Errorf("%w: %s did not create bet %d", ErrNotCreator, caller.Hex(), betID)
	}

	plan := CancellationPlan(bet)
	if err := applyReleasePlan(ctx, uow, bet.ID, plan); err != nil {
		return nil, err
	}

	if err := transition(bet, models.BetStatusCancelled); err != nil {
		return nil, err
	}
	if err := uow.BetRepository().Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to update bet: %w", err)
	}

	uow.EventBus().Publish(events.BetCancelledEvent{
		BetID:    bet.ID,
		Creator:  bet.Creator.Hex(),
		Refunded: plan.Total(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":    bet.ID,
		"refunded": plan.Total().String(),
	}).Info("Bet cancelled")

	return bet, nil
}

// ResolveBet settles an active bet. Fund release and the status change
// commit together or not at all.
func (s *betService) ResolveBet(ctx context.Context, betID int64, caller common.Address, winner models.Winner) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := s.lockBet(ctx, uow, betID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if bet.Status != models.BetStatusActive {
		return nil, fmt.Errorf("%w: bet %d is %s", ErrNotActive, betID, bet.Status)
	}
	if caller != bet.Judge {
		return nil, fmt.Errorf("%w: %s is not the judge of bet %d", ErrNotJudge, caller.Hex(), betID)
	}
	if !bet.IsDeadlinePassed(now) {
		return nil, fmt.Errorf("%w: bet %d resolves after %s", ErrDeadlineNotReached, betID, bet.Deadline.Format(time.RFC3339))
	}
	if !winner.IsOutcome() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWinner, winner)
	}

	plan, err := ComputeReleasePlan(bet, winner)
	if err != nil {
		return nil, err
	}
	if err := applyReleasePlan(ctx, uow, bet.ID, plan); err != nil {
		return nil, err
	}

	if err := transition(bet, models.BetStatusResolved); err != nil {
		return nil, err
	}
	bet.Winner = winner
	bet.ResolvedAt = &now
	if err := bet.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("refusing to persist inconsistent bet: %w", err)
	}

	if err := uow.BetRepository().Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to update bet: %w", err)
	}

	uow.EventBus().Publish(events.BetResolvedEvent{
		BetID:  bet.ID,
		Judge:  bet.Judge.Hex(),
		Winner: winner,
		Pot:    plan.Total(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":  bet.ID,
		"winner": winner,
		"pot":    plan.Total().String(),
	}).Info("Bet resolved")

	return bet, nil
}

func (s *betService) validateParams(params models.BetParams, now time.Time) error {
	if models.IsZeroAccount(params.Creator) {
		return fmt.Errorf("%w: creator cannot be the zero address", models.ErrInvalidAddress)
	}
	if models.IsZeroAccount(params.Judge) || params.Judge == params.Creator {
		return ErrInvalidJudge
	}
	if params.Opponent != nil {
		if models.IsZeroAccount(*params.Opponent) {
			return fmt.Errorf("%w: use no opponent for an open challenge", ErrInvalidOpponent)
		}
		if *params.Opponent == params.Creator {
			return ErrInvalidOpponent
		}
		if s.rules.RequireNeutralJudge && *params.Opponent == params.Judge {
			return fmt.Errorf("%w: judge cannot also be the opponent", ErrInvalidJudge)
		}
	}

	if !params.Amount.IsInteger() || params.Amount.IsNegative() || models.ExceedsMaxAmount(params.Amount) {
		return fmt.Errorf("%w: %s is not a whole number of base units", ErrInvalidAmount, params.Amount)
	}
	if !params.Amount.IsPositive() || params.Amount.LessThan(s.rules.MinAmount) {
		return fmt.Errorf("%w: minimum is %s", ErrAmountTooLow, s.rules.MinAmount)
	}

	earliest := now.Add(s.rules.MinDeadlineBuffer)
	if !params.Deadline.After(earliest) {
		return fmt.Errorf("%w: must be after %s", ErrDeadlineTooSoon, earliest.Format(time.RFC3339))
	}

	terms := strings.TrimSpace(params.Terms)
	if terms == "" {
		return ErrEmptyTerms
	}
	if utf8.RuneCountInString(terms) < s.rules.MinTermsLength {
		return fmt.Errorf("%w: need at least %d characters", ErrTermsTooShort, s.rules.MinTermsLength)
	}

	return nil
}

func (s *betService) lockBet(ctx context.Context, uow UnitOfWork, betID int64) (*models.Bet, error) {
	bet, err := uow.BetRepository().GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, fmt.Errorf("%w: %d", ErrBetNotFound, betID)
	}
	return bet, nil
}

// transition moves a bet to next if the status table allows it
func transition(bet *models.Bet, next models.BetStatus) error {
	if !bet.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, bet.Status, next)
	}
	bet.Status = next
	return nil
}

// applyReleasePlan credits accounts in address order, the same order Transfer
// locks token rows in
func applyReleasePlan(ctx context.Context, uow UnitOfWork, betID int64, plan models.ReleasePlan) error {
	escrow := NewEscrow(uow)
	for _, release := range plan.ByAccount() {
		if err := escrow.Release(ctx, release.Account, release.Amount, betID, release.Type); err != nil {
			return fmt.Errorf("failed to release escrow to %s: %w", release.Account.Hex(), err)
		}
	}
	return nil
}
