package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mneebet/models"
	"mneebet/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type usernameRepository struct {
	uow *unitOfWork
}

func (r *usernameRepository) Create(ctx context.Context, username *models.Username) error {
	s := r.uow.store
	if _, ok := s.usernames[username.Account]; ok {
		return fmt.Errorf("%w: %s", service.ErrAlreadyRegistered, username.Account.Hex())
	}
	if _, ok := s.owners[username.Username]; ok {
		return fmt.Errorf("%w: %q", service.ErrUsernameTaken, username.Username)
	}

	s.usernames[username.Account] = cloneUsername(username)
	s.owners[username.Username] = username.Account
	r.uow.record(func() {
		delete(s.usernames, username.Account)
		delete(s.owners, username.Username)
	})
	return nil
}

func (r *usernameRepository) GetByAccount(ctx context.Context, account common.Address) (*models.Username, error) {
	if u, ok := r.uow.store.usernames[account]; ok {
		return cloneUsername(u), nil
	}
	return nil, nil
}

func (r *usernameRepository) GetByUsername(ctx context.Context, username string) (*models.Username, error) {
	s := r.uow.store
	if account, ok := s.owners[username]; ok {
		return cloneUsername(s.usernames[account]), nil
	}
	return nil, nil
}

type tokenAccountRepository struct {
	uow *unitOfWork
}

func (r *tokenAccountRepository) GetByAccount(ctx context.Context, account common.Address) (*models.TokenAccount, error) {
	if a, ok := r.uow.store.tokenAccounts[account]; ok {
		return cloneTokenAccount(a), nil
	}
	return nil, nil
}

// GetOrCreateForUpdate needs no row lock; the unit of work already owns the store
func (r *tokenAccountRepository) GetOrCreateForUpdate(ctx context.Context, account common.Address) (*models.TokenAccount, error) {
	s := r.uow.store
	if a, ok := s.tokenAccounts[account]; ok {
		return cloneTokenAccount(a), nil
	}

	now := time.Now().UTC()
	created := &models.TokenAccount{
		Account:   account,
		Balance:   decimal.Zero,
		Allowance: decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tokenAccounts[account] = created
	r.uow.record(func() { delete(s.tokenAccounts, account) })
	return cloneTokenAccount(created), nil
}

func (r *tokenAccountRepository) Update(ctx context.Context, tokenAccount *models.TokenAccount) error {
	s := r.uow.store
	previous, ok := s.tokenAccounts[tokenAccount.Account]
	if !ok {
		return fmt.Errorf("token account %s not found", tokenAccount.Account.Hex())
	}
	if tokenAccount.Balance.IsNegative() || tokenAccount.Allowance.IsNegative() {
		return fmt.Errorf("token account %s would go negative", tokenAccount.Account.Hex())
	}

	updated := cloneTokenAccount(tokenAccount)
	updated.CreatedAt = previous.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.tokenAccounts[tokenAccount.Account] = updated
	r.uow.record(func() { s.tokenAccounts[tokenAccount.Account] = previous })
	return nil
}

type escrowRepository struct {
	uow *unitOfWork
}

func (r *escrowRepository) GetByBetForUpdate(ctx context.Context, betID int64) ([]*models.EscrowHolding, error) {
	holdings := make([]*models.EscrowHolding, 0, 2)
	for _, h := range r.uow.store.escrow[betID] {
		holdings = append(holdings, cloneHolding(h))
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Account.Cmp(holdings[j].Account) < 0
	})
	return holdings, nil
}

func (r *escrowRepository) Add(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error {
	current := decimal.Zero
	if h, ok := r.uow.store.escrow[betID][account]; ok {
		current = h.Amount
	}
	return r.SetAmount(ctx, betID, account, current.Add(amount))
}

func (r *escrowRepository) SetAmount(ctx context.Context, betID int64, account common.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("escrow holding for bet %d cannot go negative", betID)
	}

	s := r.uow.store
	byAccount, ok := s.escrow[betID]
	if !ok {
		byAccount = make(map[common.Address]*models.EscrowHolding)
		s.escrow[betID] = byAccount
	}
	previous, existed := byAccount[account]

	byAccount[account] = &models.EscrowHolding{
		BetID:     betID,
		Account:   account,
		Amount:    amount,
		UpdatedAt: time.Now().UTC(),
	}
	r.uow.record(func() {
		if existed {
			byAccount[account] = previous
		} else {
			delete(byAccount, account)
		}
	})
	return nil
}

func (r *escrowRepository) TotalByBet(ctx context.Context, betID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, h := range r.uow.store.escrow[betID] {
		total = total.Add(h.Amount)
	}
	return total, nil
}

type betRepository struct {
	uow *unitOfWork
}

func (r *betRepository) NextID(ctx context.Context) (int64, error) {
	s := r.uow.store
	id := s.nextID
	s.nextID++
	r.uow.record(func() { s.nextID = id })
	return id, nil
}

func (r *betRepository) Create(ctx context.Context, bet *models.Bet) error {
	s := r.uow.store
	if bet.ID != int64(len(s.bets)) {
		return fmt.Errorf("bet id %d out of sequence, expected %d", bet.ID, len(s.bets))
	}

	s.bets = append(s.bets, bet.Clone())
	r.uow.record(func() { s.bets = s.bets[:len(s.bets)-1] })
	return nil
}

func (r *betRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	s := r.uow.store
	if id < 0 || id >= int64(len(s.bets)) {
		return nil, nil
	}
	return s.bets[id].Clone(), nil
}

// GetByIDForUpdate needs no row lock; the unit of work already owns the store
func (r *betRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Bet, error) {
	return r.GetByID(ctx, id)
}

func (r *betRepository) Update(ctx context.Context, bet *models.Bet) error {
	s := r.uow.store
	if bet.ID < 0 || bet.ID >= int64(len(s.bets)) {
		return fmt.Errorf("bet %d not found", bet.ID)
	}

	previous := s.bets[bet.ID]
	s.bets[bet.ID] = bet.Clone()
	r.uow.record(func() { s.bets[bet.ID] = previous })
	return nil
}

func (r *betRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(r.uow.store.bets)), nil
}

func (r *betRepository) ListRange(ctx context.Context, start, end int64) ([]*models.Bet, error) {
	s := r.uow.store
	start = max(start, 0)
	end = min(end, int64(len(s.bets)))

	bets := make([]*models.Bet, 0, max(end-start, 0))
	for id := start; id < end; id++ {
		bets = append(bets, s.bets[id].Clone())
	}
	return bets, nil
}

func (r *betRepository) ListByAccount(ctx context.Context, account common.Address) ([]*models.Bet, error) {
	bets := make([]*models.Bet, 0)
	for _, bet := range r.uow.store.bets {
		if bet.Involves(account) {
			bets = append(bets, bet.Clone())
		}
	}
	return bets, nil
}

func (r *betRepository) ListByStatus(ctx context.Context, status models.BetStatus) ([]*models.Bet, error) {
	bets := make([]*models.Bet, 0)
	for _, bet := range r.uow.store.bets {
		if bet.Status == status {
			bets = append(bets, bet.Clone())
		}
	}
	return bets, nil
}

type balanceHistoryRepository struct {
	uow *unitOfWork
}

func (r *balanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	s := r.uow.store
	history.ID = int64(len(s.history)) + 1
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().UTC()
	}

	s.history = append(s.history, cloneHistory(history))
	r.uow.record(func() { s.history = s.history[:len(s.history)-1] })
	return nil
}

func (r *balanceHistoryRepository) GetByAccount(ctx context.Context, account common.Address, limit int) ([]*models.BalanceHistory, error) {
	result := make([]*models.BalanceHistory, 0)
	history := r.uow.store.history
	for i := len(history) - 1; i >= 0 && len(result) < limit; i-- {
		if history[i].Account == account {
			result = append(result, cloneHistory(history[i]))
		}
	}
	return result, nil
}
