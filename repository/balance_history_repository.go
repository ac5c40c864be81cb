package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"mneebet/database"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadata := history.TransactionMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(address, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, related_bet_id)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.Account.Bytes(),
		history.BalanceBefore.String(),
		history.BalanceAfter.String(),
		history.ChangeAmount.String(),
		history.TransactionType,
		metadataJSON,
		history.RelatedBetID,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for %s: %w", history.Account.Hex(), err)
	}

	return nil
}

// GetByAccount returns the newest entries for an account first
func (r *BalanceHistoryRepository) GetByAccount(ctx context.Context, account common.Address, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, balance_before::text, balance_after::text, change_amount::text,
		       transaction_type, transaction_metadata, related_bet_id, created_at
		FROM balance_history
		WHERE address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, account.Bytes(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	histories := make([]*models.BalanceHistory, 0)
	for rows.Next() {
		var before, after, change string
		var metadataJSON []byte
		history := models.BalanceHistory{Account: account}

		err := rows.Scan(
			&history.ID,
			&before,
			&after,
			&change,
			&history.TransactionType,
			&metadataJSON,
			&history.RelatedBetID,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		if history.BalanceBefore, err = parseAmount(before); err != nil {
			return nil, err
		}
		if history.BalanceAfter, err = parseAmount(after); err != nil {
			return nil, err
		}
		if history.ChangeAmount, err = parseAmount(change); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance history: %w", err)
	}

	return histories, nil
}
