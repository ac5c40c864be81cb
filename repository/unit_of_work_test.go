package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mneebet/events"
	"mneebet/models"
	"mneebet/repository/testutil"
	"mneebet/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postgresLedger struct {
	testDB *testutil.TestDatabase
	clock  *service.ManualClock
	bets   service.BetService
	tokens service.TokenService
}

func newPostgresLedger(t *testing.T, bus *events.Bus) *postgresLedger {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	clock := service.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	return &postgresLedger{
		testDB: testDB,
		clock:  clock,
		bets:   service.NewBetService(factory, service.DefaultBetRules(), clock),
		tokens: service.NewTokenService(factory, service.TokenConfig{Symbol: "MNEE", Decimals: 18}),
	}
}

func (l *postgresLedger) params(opponent *common.Address) models.BetParams {
	return models.BetParams{
		Creator:  testutil.Alice,
		Opponent: opponent,
		Judge:    testutil.Carol,
		Amount:   testutil.Tokens(100),
		Terms:    "Alice finishes the marathon under four hours",
		Deadline: l.clock.Now().Add(24 * time.Hour),
	}
}

func TestUnitOfWork_FullLifecycle(t *testing.T) {
	t.Parallel()
	bus := events.NewBus()
	var resolved atomic.Int32
	bus.Subscribe(events.EventTypeBetResolved, func(ctx context.Context, event events.Event) {
		resolved.Add(1)
	})

	l := newPostgresLedger(t, bus)
	ctx := context.Background()

	l.testDB.Fund(t, testutil.Alice, testutil.Tokens(1000), testutil.Tokens(1000))
	l.testDB.Fund(t, testutil.Bob, testutil.Tokens(1000), testutil.Tokens(1000))

	bob := testutil.Bob
	bet, err := l.bets.CreateBet(ctx, l.params(&bob))
	require.NoError(t, err)
	assert.Equal(t, int64(0), bet.ID)

	_, err = l.bets.AcceptBet(ctx, bet.ID, testutil.Bob)
	require.NoError(t, err)

	escrowed, err := l.tokens.EscrowedTotal(ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Tokens(200).Equal(escrowed))

	_, err = l.bets.ResolveBet(ctx, bet.ID, testutil.Carol, models.WinnerOpponent)
	assert.ErrorIs(t, err, service.ErrDeadlineNotReached)

	l.clock.Advance(24 * time.Hour)
	final, err := l.bets.ResolveBet(ctx, bet.ID, testutil.Carol, models.WinnerOpponent)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusResolved, final.Status)

	aliceBalance, err := l.tokens.BalanceOf(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.True(t, testutil.Tokens(900).Equal(aliceBalance))

	bobBalance, err := l.tokens.BalanceOf(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.True(t, testutil.Tokens(1100).Equal(bobBalance))

	escrowed, err = l.tokens.EscrowedTotal(ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, escrowed.IsZero())

	history, err := l.tokens.History(ctx, testutil.Bob, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.TransactionTypePayout, history[0].TransactionType)
	require.NotNil(t, history[0].RelatedBetID)
	assert.Equal(t, bet.ID, *history[0].RelatedBetID)

	assert.Eventually(t, func() bool { return resolved.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestUnitOfWork_FailedCreateReleasesID(t *testing.T) {
	t.Parallel()
	l := newPostgresLedger(t, events.NewBus())
	ctx := context.Background()

	l.testDB.Fund(t, testutil.Alice, testutil.Tokens(1000), testutil.Tokens(50))

	_, err := l.bets.CreateBet(ctx, l.params(nil))
	assert.ErrorIs(t, err, service.ErrInsufficientAllowance)

	l.testDB.Fund(t, testutil.Alice, testutil.Tokens(1000), testutil.Tokens(1000))
	bet, err := l.bets.CreateBet(ctx, l.params(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), bet.ID)
}

func TestUnitOfWork_ConcurrentAcceptSingleWinner(t *testing.T) {
	t.Parallel()
	l := newPostgresLedger(t, events.NewBus())
	ctx := context.Background()

	l.testDB.Fund(t, testutil.Alice, testutil.Tokens(1000), testutil.Tokens(1000))
	l.testDB.Fund(t, testutil.Bob, testutil.Tokens(1000), testutil.Tokens(1000))
	l.testDB.Fund(t, testutil.Dave, testutil.Tokens(1000), testutil.Tokens(1000))

	bet, err := l.bets.CreateBet(ctx, l.params(nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for _, caller := range []common.Address{testutil.Bob, testutil.Dave} {
		wg.Add(1)
		go func(caller common.Address) {
			defer wg.Done()
			if _, err := l.bets.AcceptBet(ctx, bet.ID, caller); err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, service.ErrNotOpen)
			}
		}(caller)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())

	escrowed, err := l.tokens.EscrowedTotal(ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Tokens(200).Equal(escrowed))
}
