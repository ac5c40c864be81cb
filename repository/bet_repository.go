package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mneebet/database"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

const betColumns = `id, creator, opponent, judge, amount::text, terms, deadline, status, winner,
		       created_at, accepted_at, resolved_at`

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

// NextID takes the next bet id. The counter row stays locked until the
// transaction ends, so a rolled back create gives its id back.
func (r *BetRepository) NextID(ctx context.Context) (int64, error) {
	query := `
		UPDATE bet_counter
		SET next_id = next_id + 1
		WHERE singleton
		RETURNING next_id - 1
	`

	var id int64
	if err := r.q.QueryRow(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to assign bet id: %w", err)
	}
	return id, nil
}

// Create inserts a new bet under its assigned id
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (id, creator, opponent, judge, amount, terms, deadline, status, winner, created_at, accepted_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		bet.ID,
		bet.Creator.Bytes(),
		optionalAddressBytes(bet.Opponent),
		bet.Judge.Bytes(),
		bet.Amount.String(),
		bet.Terms,
		bet.Deadline,
		bet.Status,
		bet.Winner,
		bet.CreatedAt,
		bet.AcceptedAt,
		bet.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bet %d: %w", bet.ID, err)
	}
	return nil
}

// GetByID retrieves a bet by id
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a bet by id and locks the row
func (r *BetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// Update persists the mutable fields of a bet
func (r *BetRepository) Update(ctx context.Context, bet *models.Bet) error {
	query := `
		UPDATE bets
		SET opponent = $1, status = $2, winner = $3, accepted_at = $4, resolved_at = $5
		WHERE id = $6
	`

	tag, err := r.q.Exec(ctx, query,
		optionalAddressBytes(bet.Opponent),
		bet.Status,
		bet.Winner,
		bet.AcceptedAt,
		bet.ResolvedAt,
		bet.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bet %d: %w", bet.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bet %d not found", bet.ID)
	}
	return nil
}

// Count returns how many bets have been created
func (r *BetRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT next_id FROM bet_counter WHERE singleton`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bets: %w", err)
	}
	return count, nil
}

// ListRange returns bets with start <= id < end in id order
func (r *BetRepository) ListRange(ctx context.Context, start, end int64) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id >= $1 AND id < $2 ORDER BY id`
	return r.list(ctx, query, start, end)
}

// ListByAccount returns bets the account created, accepted or judges
func (r *BetRepository) ListByAccount(ctx context.Context, account common.Address) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets
		WHERE creator = $1 OR opponent = $1 OR judge = $1
		ORDER BY id`
	return r.list(ctx, query, account.Bytes())
}

// ListByStatus returns bets in the given status
func (r *BetRepository) ListByStatus(ctx context.Context, status models.BetStatus) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE status = $1 ORDER BY id`
	return r.list(ctx, query, status)
}

func (r *BetRepository) getOne(ctx context.Context, query string, id int64) (*models.Bet, error) {
	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}
	return bet, nil
}

func (r *BetRepository) list(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	bets := make([]*models.Bet, 0)
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	var bet models.Bet
	var creator, opponent, judge []byte
	var amount string

	err := row.Scan(
		&bet.ID,
		&creator,
		&opponent,
		&judge,
		&amount,
		&bet.Terms,
		&bet.Deadline,
		&bet.Status,
		&bet.Winner,
		&bet.CreatedAt,
		&bet.AcceptedAt,
		&bet.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if bet.Creator, err = addressFromBytes(creator); err != nil {
		return nil, err
	}
	if bet.Judge, err = addressFromBytes(judge); err != nil {
		return nil, err
	}
	if opponent != nil {
		address, err := addressFromBytes(opponent)
		if err != nil {
			return nil, err
		}
		bet.Opponent = &address
	}
	if bet.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}

	bet.Deadline = bet.Deadline.UTC()
	bet.CreatedAt = bet.CreatedAt.UTC()
	bet.AcceptedAt = utcPtr(bet.AcceptedAt)
	bet.ResolvedAt = utcPtr(bet.ResolvedAt)
	return &bet, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
