package repository

import (
	"context"
	"errors"
	"fmt"

	"mneebet/database"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// TokenAccountRepository implements the TokenAccountRepository interface
type TokenAccountRepository struct {
	q queryable
}

// NewTokenAccountRepository creates a new token account repository
func NewTokenAccountRepository(db *database.DB) *TokenAccountRepository {
	return &TokenAccountRepository{q: db.Pool}
}

// newTokenAccountRepositoryWithTx creates a new token account repository with a transaction
func newTokenAccountRepositoryWithTx(tx queryable) *TokenAccountRepository {
	return &TokenAccountRepository{q: tx}
}

// GetByAccount retrieves an account's position without locking it
func (r *TokenAccountRepository) GetByAccount(ctx context.Context, account common.Address) (*models.TokenAccount, error) {
	query := `
		SELECT balance::text, allowance::text, created_at, updated_at
		FROM token_accounts
		WHERE address = $1
	`
	tokenAccount, err := r.scan(r.q.QueryRow(ctx, query, account.Bytes()), account)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token account %s: %w", account.Hex(), err)
	}
	return tokenAccount, nil
}

// GetOrCreateForUpdate makes sure the row exists, then locks it until the transaction ends
func (r *TokenAccountRepository) GetOrCreateForUpdate(ctx context.Context, account common.Address) (*models.TokenAccount, error) {
	insert := `
		INSERT INTO token_accounts (address)
		VALUES ($1)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, account.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to ensure token account %s: %w", account.Hex(), err)
	}

	query := `
		SELECT balance::text, allowance::text, created_at, updated_at
		FROM token_accounts
		WHERE address = $1
		FOR UPDATE
	`
	tokenAccount, err := r.scan(r.q.QueryRow(ctx, query, account.Bytes()), account)
	if err != nil {
		return nil, fmt.Errorf("failed to lock token account %s: %w", account.Hex(), err)
	}
	return tokenAccount, nil
}

// Update persists balance and allowance
func (r *TokenAccountRepository) Update(ctx context.Context, tokenAccount *models.TokenAccount) error {
	query := `
		UPDATE token_accounts
		SET balance = $1::numeric, allowance = $2::numeric, updated_at = NOW()
		WHERE address = $3
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		tokenAccount.Balance.String(),
		tokenAccount.Allowance.String(),
		tokenAccount.Account.Bytes(),
	).Scan(&tokenAccount.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("token account %s not found", tokenAccount.Account.Hex())
	}
	if err != nil {
		return fmt.Errorf("failed to update token account %s: %w", tokenAccount.Account.Hex(), err)
	}
	return nil
}

func (r *TokenAccountRepository) scan(row pgx.Row, account common.Address) (*models.TokenAccount, error) {
	var balance, allowance string
	tokenAccount := models.TokenAccount{Account: account}

	if err := row.Scan(&balance, &allowance, &tokenAccount.CreatedAt, &tokenAccount.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if tokenAccount.Balance, err = parseAmount(balance); err != nil {
		return nil, err
	}
	if tokenAccount.Allowance, err = parseAmount(allowance); err != nil {
		return nil, err
	}
	return &tokenAccount, nil
}
