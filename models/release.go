package models

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Release is one credit out of a bet's escrow
type Release struct {
	Account common.Address
	Amount  decimal.Decimal
	Type    TransactionType
}

// ReleasePlan lists every credit a terminal transition makes. Entries with a
// zero amount are kept so the plan always names both parties.
type ReleasePlan []Release

// Total sums all release amounts
func (p ReleasePlan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p {
		total = total.Add(r.Amount)
	}
	return total
}

// AmountFor returns the total released to an account
func (p ReleasePlan) AmountFor(account common.Address) decimal.Decimal {
	total := decimal.Zero
	for _, r := range p {
		if r.Account == account {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// ByAccount returns a copy of the plan sorted by account address
func (p ReleasePlan) ByAccount() ReleasePlan {
	ordered := make(ReleasePlan, len(p))
	copy(ordered, p)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Account.Cmp(ordered[j].Account) < 0
	})
	return ordered
}
