package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeMint         TransactionType = "mint"
	TransactionTypeStakeLock    TransactionType = "stake_lock"
	TransactionTypePayout       TransactionType = "payout"
	TransactionTypeDrawRefund   TransactionType = "draw_refund"
	TransactionTypeCancelRefund TransactionType = "cancel_refund"
	TransactionTypeTransferOut  TransactionType = "transfer_out"
	TransactionTypeTransferIn   TransactionType = "transfer_in"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	Account             common.Address  `db:"address"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedBetID        *int64          `db:"related_bet_id"`
	CreatedAt           time.Time       `db:"created_at"`
}
