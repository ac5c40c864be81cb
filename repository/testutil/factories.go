package testutil

import (
	"time"

	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	Alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	Bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	Carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	Dave  = common.HexToAddress("0x0000000000000000000000000000000000000da7")
)

// Tokens returns n whole tokens in 18-decimal base units
func Tokens(n int64) decimal.Decimal {
	return decimal.New(n, 18)
}

// CreateTestBet creates an open bet from Alice judged by Carol
func CreateTestBet(id int64) *models.Bet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Bet{
		ID:        id,
		Creator:   Alice,
		Judge:     Carol,
		Amount:    Tokens(100),
		Terms:     "Alice finishes the marathon under four hours",
		Deadline:  now.Add(24 * time.Hour),
		Status:    models.BetStatusOpen,
		Winner:    models.WinnerNone,
		CreatedAt: now,
	}
}

// CreateTestBetWithOpponent creates an open bet aimed at a specific opponent
func CreateTestBetWithOpponent(id int64, opponent common.Address) *models.Bet {
	bet := CreateTestBet(id)
	bet.Opponent = &opponent
	return bet
}

// CreateTestBalanceHistory creates a balance history entry for an account
func CreateTestBalanceHistory(account common.Address, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		Account:         account,
		BalanceBefore:   Tokens(1000),
		BalanceAfter:    Tokens(900),
		ChangeAmount:    Tokens(-100),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
