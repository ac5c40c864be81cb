// Package memory keeps the whole ledger in process. A unit of work holds the
// store exclusively from Begin until Commit or Rollback, and Rollback replays
// an undo log, so readers never see a partially applied transition.
package memory

import (
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
)

// Store is the in-process ledger state
type Store struct {
	sem chan struct{} // held by the active unit of work

	usernames     map[common.Address]*models.Username
	owners        map[string]common.Address
	tokenAccounts map[common.Address]*models.TokenAccount
	bets          []*models.Bet // indexed by id
	escrow        map[int64]map[common.Address]*models.EscrowHolding
	history       []*models.BalanceHistory
	nextID        int64
}

// NewStore creates an empty ledger
func NewStore() *Store {
	return &Store{
		sem:           make(chan struct{}, 1),
		usernames:     make(map[common.Address]*models.Username),
		owners:        make(map[string]common.Address),
		tokenAccounts: make(map[common.Address]*models.TokenAccount),
		escrow:        make(map[int64]map[common.Address]*models.EscrowHolding),
	}
}

func cloneUsername(u *models.Username) *models.Username {
	c := *u
	return &c
}

func cloneTokenAccount(a *models.TokenAccount) *models.TokenAccount {
	c := *a
	return &c
}

func cloneHolding(h *models.EscrowHolding) *models.EscrowHolding {
	c := *h
	return &c
}

func cloneHistory(h *models.BalanceHistory) *models.BalanceHistory {
	c := *h
	if h.TransactionMetadata != nil {
		c.TransactionMetadata = make(map[string]any, len(h.TransactionMetadata))
		for k, v := range h.TransactionMetadata {
			c.TransactionMetadata[k] = v
		}
	}
	if h.RelatedBetID != nil {
		id := *h.RelatedBetID
		c.RelatedBetID = &id
	}
	return &c
}
