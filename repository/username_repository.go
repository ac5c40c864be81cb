package repository

import (
	"context"
	"errors"
	"fmt"

	"mneebet/database"
	"mneebet/models"
	"mneebet/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// UsernameRepository implements the UsernameRepository interface
type UsernameRepository struct {
	q queryable
}

// NewUsernameRepository creates a new username repository
func NewUsernameRepository(db *database.DB) *UsernameRepository {
	return &UsernameRepository{q: db.Pool}
}

// newUsernameRepositoryWithTx creates a new username repository with a transaction
func newUsernameRepositoryWithTx(tx queryable) *UsernameRepository {
	return &UsernameRepository{q: tx}
}

// Create inserts the binding. Both directions live in one row, so the
// primary key and the unique username index settle concurrent registrations.
func (r *UsernameRepository) Create(ctx context.Context, username *models.Username) error {
	query := `
		INSERT INTO usernames (address, username, registered_at)
		VALUES ($1, $2, $3)
		RETURNING registered_at
	`

	err := r.q.QueryRow(ctx, query, username.Account.Bytes(), username.Username, username.RegisteredAt).
		Scan(&username.RegisteredAt)

	switch uniqueConstraint(err) {
	case "":
	case "usernames_pkey":
		return fmt.Errorf("%w: %s", service.ErrAlreadyRegistered, username.Account.Hex())
	default:
		return fmt.Errorf("%w: %q", service.ErrUsernameTaken, username.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to insert username for %s: %w", username.Account.Hex(), err)
	}

	return nil
}

// GetByAccount retrieves the binding for an address
func (r *UsernameRepository) GetByAccount(ctx context.Context, account common.Address) (*models.Username, error) {
	query := `
		SELECT address, username, registered_at
		FROM usernames
		WHERE address = $1
	`
	return r.getOne(ctx, query, account.Bytes())
}

// GetByUsername retrieves the binding for a handle
func (r *UsernameRepository) GetByUsername(ctx context.Context, username string) (*models.Username, error) {
	query := `
		SELECT address, username, registered_at
		FROM usernames
		WHERE username = $1
	`
	return r.getOne(ctx, query, username)
}

func (r *UsernameRepository) getOne(ctx context.Context, query string, arg any) (*models.Username, error) {
	var binding models.Username
	var address []byte

	err := r.q.QueryRow(ctx, query, arg).Scan(&address, &binding.Username, &binding.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get username: %w", err)
	}

	if binding.Account, err = addressFromBytes(address); err != nil {
		return nil, err
	}
	return &binding, nil
}
