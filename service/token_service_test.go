package service_test

import (
	"context"
	"testing"
	"time"

	"mneebet/events"
	"mneebet/models"
	"mneebet/repository/memory"
	"mneebet/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_ApproveReplacesAllowance(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.tokens.Approve(ctx, alice, decimal.NewFromInt(500)))
	require.NoError(t, l.tokens.Approve(ctx, alice, decimal.NewFromInt(20)))

	allowance, err := l.tokens.Allowance(ctx, alice)
	require.NoError(t, err)
	assert.True(t, allowance.Equal(decimal.NewFromInt(20)))

	err = l.tokens.Approve(ctx, alice, decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, service.ErrInvalidAmount)
}

func TestToken_UnknownAccountHasZeroBalance(t *testing.T) {
	l := newLedger(t)

	balance, err := l.tokens.BalanceOf(context.Background(), eve)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestToken_MintLimits(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	_, err := l.tokens.Mint(ctx, alice, decimal.NewFromInt(1_000_001))
	assert.ErrorIs(t, err, service.ErrFaucetLimitExceeded)

	_, err = l.tokens.Mint(ctx, alice, decimal.Zero)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	balance, err := l.tokens.Mint(ctx, alice, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10)))
}

func TestToken_FaucetDisabled(t *testing.T) {
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), events.NewBus())
	tokens := service.NewTokenService(factory, service.TokenConfig{Symbol: "MNEE", Decimals: 18})

	_, err := tokens.Mint(context.Background(), alice, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, service.ErrFaucetDisabled)
	assert.Equal(t, service.KindAuthorization, service.KindOf(err))
	assert.Equal(t, int32(18), tokens.Info().Decimals)
}

func TestToken_HistoryTracksEveryMovement(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)
	_, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	require.NoError(t, err)
	l.clock.Advance(2 * time.Hour)
	_, err = l.bets.ResolveBet(ctx, bet.ID, carol, models.WinnerOpponent)
	require.NoError(t, err)

	history, err := l.tokens.History(ctx, bob, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first
	assert.Equal(t, models.TransactionTypePayout, history[0].TransactionType)
	assert.True(t, history[0].ChangeAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, history[0].BalanceAfter.Equal(decimal.NewFromInt(1100)))
	assert.Equal(t, bet.ID, *history[0].RelatedBetID)
	assert.Equal(t, models.TransactionTypeStakeLock, history[1].TransactionType)
	assert.Equal(t, models.TransactionTypeMint, history[2].TransactionType)

	// The losing creator gets no zero-amount entry
	aliceHistory, err := l.tokens.History(ctx, alice, 10)
	require.NoError(t, err)
	assert.Len(t, aliceHistory, 2)
}
