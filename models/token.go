package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenAccount is an account's stable-token position as seen by the engine
type TokenAccount struct {
	Account   common.Address  `db:"address"`
	Balance   decimal.Decimal `db:"balance"`
	Allowance decimal.Decimal `db:"allowance"` // amount pre-authorized for the engine to pull
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// EscrowHolding is the amount a bet currently holds on behalf of one party
type EscrowHolding struct {
	BetID     int64           `db:"bet_id"`
	Account   common.Address  `db:"address"`
	Amount    decimal.Decimal `db:"amount"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// TokenInfo describes the stake token
type TokenInfo struct {
	Symbol   string
	Decimals int32
}

// TransferResult reports a completed account-to-account transfer
type TransferResult struct {
	From          common.Address
	To            common.Address
	Amount        decimal.Decimal
	SenderBalance decimal.Decimal
}
