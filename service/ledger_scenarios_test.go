package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"mneebet/events"
	"mneebet/models"
	"mneebet/repository/memory"
	"mneebet/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	eve   = common.HexToAddress("0x0000000000000000000000000000000000000e7e")
	start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type ledger struct {
	clock     *service.ManualClock
	bus       *events.Bus
	bets      service.BetService
	tokens    service.TokenService
	transfers service.TransferService
	queries   service.QueryService
	registry  service.RegistryService
}

func newLedger(t *testing.T) *ledger {
	t.Helper()

	clock := service.NewManualClock(start)
	bus := events.NewBus()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), bus)

	return &ledger{
		clock: clock,
		bus:   bus,
		bets:  service.NewBetService(factory, service.DefaultBetRules(), clock),
		tokens: service.NewTokenService(factory, service.TokenConfig{
			Symbol:          "MNEE",
			Decimals:        18,
			FaucetEnabled:   true,
			FaucetMaxAmount: decimal.NewFromInt(1_000_000),
		}),
		transfers: service.NewTransferService(factory),
		queries:   service.NewQueryService(factory),
		registry:  service.NewRegistryService(factory, clock),
	}
}

// fund mints and approves amount for the account
func (l *ledger) fund(t *testing.T, account common.Address, amount int64) {
	t.Helper()
	ctx := context.Background()
	_, err := l.tokens.Mint(ctx, account, decimal.NewFromInt(amount))
	require.NoError(t, err)
	require.NoError(t, l.tokens.Approve(ctx, account, decimal.NewFromInt(amount)))
}

func (l *ledger) balance(t *testing.T, account common.Address) int64 {
	t.Helper()
	balance, err := l.tokens.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return balance.IntPart()
}

func (l *ledger) escrowed(t *testing.T, betID int64) int64 {
	t.Helper()
	total, err := l.tokens.EscrowedTotal(context.Background(), betID)
	require.NoError(t, err)
	return total.IntPart()
}

func raceParams(opponent *common.Address) models.BetParams {
	return models.BetParams{
		Creator:  alice,
		Opponent: opponent,
		Judge:    carol,
		Amount:   decimal.NewFromInt(100),
		Terms:    "X wins race",
		Deadline: start.Add(time.Hour),
	}
}

func TestScenarioA_OpenChallengeCreatorWins(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), bet.ID)
	assert.Equal(t, models.BetStatusOpen, bet.Status)
	assert.Equal(t, int64(900), l.balance(t, alice))

	bet, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusActive, bet.Status)
	require.NotNil(t, bet.Opponent)
	assert.Equal(t, bob, *bet.Opponent)
	assert.Equal(t, int64(900), l.balance(t, bob))
	assert.Equal(t, int64(200), l.escrowed(t, bet.ID))

	l.clock.Set(start.Add(time.Hour + time.Second))
	bet, err = l.bets.ResolveBet(ctx, bet.ID, carol, models.WinnerCreator)
	require.NoError(t, err)

	assert.Equal(t, models.BetStatusResolved, bet.Status)
	assert.Equal(t, models.WinnerCreator, bet.Winner)
	require.NotNil(t, bet.ResolvedAt)
	assert.Equal(t, int64(1100), l.balance(t, alice))
	assert.Equal(t, int64(900), l.balance(t, bob))
	assert.Equal(t, int64(0), l.escrowed(t, bet.ID))

	stored, err := l.queries.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusResolved, stored.Status)
	assert.NoError(t, stored.CheckInvariants())
}

func TestScenarioB_CancelWhileOpen(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)

	// A second bet must be untouched by the cancellation
	other, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(800), l.balance(t, alice))

	bet, err = l.bets.CancelBet(ctx, bet.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusCancelled, bet.Status)
	assert.Equal(t, int64(900), l.balance(t, alice))
	assert.Equal(t, int64(0), l.escrowed(t, bet.ID))
	assert.Equal(t, int64(100), l.escrowed(t, other.ID))

	_, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	assert.ErrorIs(t, err, service.ErrNotOpen)

	_, err = l.bets.CancelBet(ctx, bet.ID, alice)
	assert.ErrorIs(t, err, service.ErrNotOpen)
	assert.Equal(t, int64(1000), l.balance(t, bob))
}

func TestScenarioC_FixedOpponent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)
	l.fund(t, eve, 1000)

	opponent := bob
	bet, err := l.bets.CreateBet(ctx, raceParams(&opponent))
	require.NoError(t, err)

	_, err = l.bets.AcceptBet(ctx, bet.ID, eve)
	assert.ErrorIs(t, err, service.ErrNotAuthorizedOpponent)
	assert.Equal(t, int64(1000), l.balance(t, eve))

	_, err = l.bets.AcceptBet(ctx, bet.ID, alice)
	assert.ErrorIs(t, err, service.ErrNotAuthorizedOpponent)

	bet, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusActive, bet.Status)
}

func TestScenarioD_Draw(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)
	_, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	require.NoError(t, err)

	_, err = l.bets.ResolveBet(ctx, bet.ID, carol, models.WinnerDraw)
	assert.ErrorIs(t, err, service.ErrDeadlineNotReached)

	l.clock.Set(start.Add(time.Hour))
	bet, err = l.bets.ResolveBet(ctx, bet.ID, carol, models.WinnerDraw)
	require.NoError(t, err)

	assert.Equal(t, models.WinnerDraw, bet.Winner)
	assert.Equal(t, int64(1000), l.balance(t, alice))
	assert.Equal(t, int64(1000), l.balance(t, bob))

	_, err = l.bets.ResolveBet(ctx, bet.ID, carol, models.WinnerCreator)
	assert.ErrorIs(t, err, service.ErrNotActive)
}

func TestAcceptAndCancelAtDeadlineArePermitted(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)

	accepted, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)
	cancelled, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)

	l.clock.Set(start.Add(time.Hour))
	_, err = l.bets.AcceptBet(ctx, accepted.ID, bob)
	assert.NoError(t, err)
	_, err = l.bets.CancelBet(ctx, cancelled.ID, alice)
	assert.NoError(t, err)
}

func TestFailedAcceptLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)

	// Bob approved enough but holds too little
	_, err := l.tokens.Mint(ctx, bob, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, l.tokens.Approve(ctx, bob, decimal.NewFromInt(500)))

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)

	_, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	stored, err := l.queries.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusOpen, stored.Status)
	assert.Nil(t, stored.Opponent)
	assert.Equal(t, int64(50), l.balance(t, bob))
	assert.Equal(t, int64(100), l.escrowed(t, bet.ID))

	allowance, err := l.tokens.Allowance(ctx, bob)
	require.NoError(t, err)
	assert.True(t, allowance.Equal(decimal.NewFromInt(500)))
}

func TestCreateWithoutAllowanceAssignsNoID(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	_, err := l.tokens.Mint(ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = l.bets.CreateBet(ctx, raceParams(nil))
	assert.ErrorIs(t, err, service.ErrInsufficientAllowance)

	count, err := l.queries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, int64(1000), l.balance(t, alice))
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)

	challengers := []common.Address{
		bob, eve,
		common.HexToAddress("0x0000000000000000000000000000000000000101"),
		common.HexToAddress("0x0000000000000000000000000000000000000102"),
		common.HexToAddress("0x0000000000000000000000000000000000000103"),
		common.HexToAddress("0x0000000000000000000000000000000000000104"),
	}
	for _, c := range challengers {
		l.fund(t, c, 1000)
	}

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, len(challengers))
	for _, c := range challengers {
		wg.Add(1)
		go func(caller common.Address) {
			defer wg.Done()
			_, err := l.bets.AcceptBet(ctx, bet.ID, caller)
			results <- err
		}(c)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, service.ErrNotOpen)
	}
	assert.Equal(t, 1, successes)

	// Exactly one extra stake was locked
	assert.Equal(t, int64(200), l.escrowed(t, bet.ID))
	total := int64(0)
	for _, c := range challengers {
		total += l.balance(t, c)
	}
	assert.Equal(t, int64(1000*len(challengers)-100), total)
}

func TestConcurrentCreatesGetSequentialIDs(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 100_000)

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bet, err := l.bets.CreateBet(ctx, raceParams(nil))
			if assert.NoError(t, err) {
				ids <- bet.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	for id := int64(0); id < n; id++ {
		assert.True(t, seen[id], "id %d never assigned", id)
	}

	count, err := l.queries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestEventsFollowCommittedTransitions(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.fund(t, alice, 1000)
	l.fund(t, bob, 1000)

	var mu sync.Mutex
	var seen []events.EventType
	l.bus.Subscribe(events.EventTypeBetCreated, func(ctx context.Context, e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type())
	})
	l.bus.Subscribe(events.EventTypeBetAccepted, func(ctx context.Context, e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type())
	})

	bet, err := l.bets.CreateBet(ctx, raceParams(nil))
	require.NoError(t, err)
	_, err = l.bets.AcceptBet(ctx, bet.ID, alice) // rejected, emits nothing
	require.Error(t, err)
	_, err = l.bets.AcceptBet(ctx, bet.ID, bob)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)
}
