package service

import (
	"math/rand"
	"testing"

	"mneebet/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeReleasePlan(t *testing.T) {
	bet := activeBet()

	tests := []struct {
		name         string
		winner       models.Winner
		creatorGets  int64
		opponentGets int64
		kind         models.TransactionType
	}{
		{"creator wins", models.WinnerCreator, 200, 0, models.TransactionTypePayout},
		{"opponent wins", models.WinnerOpponent, 0, 200, models.TransactionTypePayout},
		{"draw", models.WinnerDraw, 100, 100, models.TransactionTypeDrawRefund},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ComputeReleasePlan(bet, tt.winner)
			require.NoError(t, err)

			require.Len(t, plan, 2)
			assert.True(t, plan.AmountFor(testCreator).Equal(decimal.NewFromInt(tt.creatorGets)))
			assert.True(t, plan.AmountFor(testOpponent).Equal(decimal.NewFromInt(tt.opponentGets)))
			assert.True(t, plan.AmountFor(testJudge).IsZero())
			for _, release := range plan {
				assert.Equal(t, tt.kind, release.Type)
			}
		})
	}
}

func TestComputeReleasePlan_RejectsNonOutcomes(t *testing.T) {
	for _, winner := range []models.Winner{models.WinnerNone, "", "both"} {
		_, err := ComputeReleasePlan(activeBet(), winner)
		assert.ErrorIs(t, err, ErrInvalidWinner)
	}
}

func TestComputeReleasePlan_RequiresOpponent(t *testing.T) {
	bet := activeBet()
	bet.Opponent = nil

	_, err := ComputeReleasePlan(bet, models.WinnerCreator)
	assert.Error(t, err)
}

func TestComputeReleasePlan_ConservesPot(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	outcomes := []models.Winner{models.WinnerCreator, models.WinnerOpponent, models.WinnerDraw}

	for i := 0; i < 500; i++ {
		bet := activeBet()
		// Stakes up to ~1e24 base units, beyond int64 like 18-decimal tokens
		bet.Amount = decimal.NewFromInt(rng.Int63n(1_000_000) + 1).Shift(int32(rng.Intn(19)))

		for _, winner := range outcomes {
			plan, err := ComputeReleasePlan(bet, winner)
			require.NoError(t, err)
			assert.True(t, plan.Total().Equal(bet.Pot()), "plan for %s must distribute the whole pot of %s", winner, bet.Pot())
			for _, release := range plan {
				assert.False(t, release.Amount.IsNegative())
			}
		}
	}
}

func TestCancellationPlan(t *testing.T) {
	bet := activeBet()
	bet.Status = models.BetStatusOpen
	bet.Opponent = nil

	plan := CancellationPlan(bet)

	require.Len(t, plan, 1)
	assert.Equal(t, testCreator, plan[0].Account)
	assert.True(t, plan[0].Amount.Equal(bet.Amount))
	assert.Equal(t, models.TransactionTypeCancelRefund, plan[0].Type)
}

func TestReleasePlan_ByAccountSortsWithoutMutating(t *testing.T) {
	plan, err := ComputeReleasePlan(activeBet(), models.WinnerDraw)
	require.NoError(t, err)
	require.Equal(t, testCreator, plan[0].Account)

	ordered := plan.ByAccount()

	require.Len(t, ordered, 2)
	assert.Equal(t, testOpponent, ordered[0].Account)
	assert.Equal(t, testCreator, ordered[1].Account)
	assert.Equal(t, testCreator, plan[0].Account)
}
