package repository

import (
	"context"
	"fmt"

	"mneebet/database"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EscrowRepository implements the EscrowRepository interface
type EscrowRepository struct {
	q queryable
}

// NewEscrowRepository creates a new escrow repository
func NewEscrowRepository(db *database.DB) *EscrowRepository {
	return &EscrowRepository{q: db.Pool}
}

// newEscrowRepositoryWithTx creates a new escrow repository with a transaction
func newEscrowRepositoryWithTx(tx queryable) *EscrowRepository {
	return &EscrowRepository{q: tx}
}

// GetByBetForUpdate returns and locks every holding of a bet
func (r *EscrowRepository) GetByBetForUpdate(ctx context.Context, betID int64) ([]*models.EscrowHolding, error) {
	query := `
		SELECT address, amount::text, updated_at
		FROM escrow_holdings
		WHERE bet_id = $1
		ORDER BY address
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow holdings for bet %d: %w", betID, err)
	}
	defer rows.Close()

	holdings := make([]*models.EscrowHolding, 0, 2)
	for rows.Next() {
		var address []byte
		var amount string
		holding := models.EscrowHolding{BetID: betID}

		if err := rows.Scan(&address, &amount, &holding.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan escrow holding: %w", err)
		}
		if holding.Account, err = addressFromBytes(address); err != nil {
			return nil, err
		}
		if holding.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		holdings = append(holdings, &holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating escrow holdings: %w", err)
	}

	return holdings, nil
}

// Add increases (or creates) the holding for a bet and account
func (r *EscrowRepository) Add(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error {
	query := `
		INSERT INTO escrow_holdings (bet_id, address, amount)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (bet_id, address)
		DO UPDATE SET amount = escrow_holdings.amount + EXCLUDED.amount, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, betID, account.Bytes(), amount.String()); err != nil {
		return fmt.Errorf("failed to add escrow for bet %d: %w", betID, err)
	}
	return nil
}

// SetAmount overwrites the holding for a bet and account
func (r *EscrowRepository) SetAmount(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error {
	query := `
		INSERT INTO escrow_holdings (bet_id, address, amount)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (bet_id, address)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, betID, account.Bytes(), amount.String()); err != nil {
		return fmt.Errorf("failed to set escrow for bet %d: %w", betID, err)
	}
	return nil
}

// TotalByBet sums all holdings of a bet
func (r *EscrowRepository) TotalByBet(ctx context.Context, betID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM escrow_holdings
		WHERE bet_id = $1
	`

	var total string
	if err := r.q.QueryRow(ctx, query, betID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum escrow for bet %d: %w", betID, err)
	}
	return parseAmount(total)
}
