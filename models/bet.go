package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// BetStatus represents the lifecycle state of a bet
type BetStatus string

const (
	BetStatusOpen           BetStatus = "open"
	BetStatusActive         BetStatus = "active"
	BetStatusPendingResolve BetStatus = "pending_resolve"
	BetStatusResolved       BetStatus = "resolved"
	BetStatusCancelled      BetStatus = "cancelled"
	BetStatusDisputed       BetStatus = "disputed"
)

// Contract ordinals, in declaration order of the on-chain enum.
var betStatusOrdinals = []BetStatus{
	BetStatusOpen,
	BetStatusActive,
	BetStatusPendingResolve,
	BetStatusResolved,
	BetStatusCancelled,
	BetStatusDisputed,
}

var betStatusLabels = map[BetStatus]string{
	BetStatusOpen:           "Open",
	BetStatusActive:         "Active",
	BetStatusPendingResolve: "Pending Resolve",
	BetStatusResolved:       "Resolved",
	BetStatusCancelled:      "Cancelled",
	BetStatusDisputed:       "Disputed",
}

// betTransitions lists every permitted status change. PendingResolve and
// Disputed are reachable only through extension paths; no ledger
// operation enters them today.
var betTransitions = map[BetStatus][]BetStatus{
	BetStatusOpen:           {BetStatusActive, BetStatusCancelled},
	BetStatusActive:         {BetStatusResolved, BetStatusPendingResolve, BetStatusDisputed},
	BetStatusPendingResolve: {BetStatusResolved},
	BetStatusDisputed:       {BetStatusResolved},
	BetStatusResolved:       nil,
	BetStatusCancelled:      nil,
}

// IsValid reports whether s is one of the declared statuses
func (s BetStatus) IsValid() bool {
	_, ok := betTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible
func (s BetStatus) IsTerminal() bool {
	return s.IsValid() && len(betTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is a legal transition
func (s BetStatus) CanTransitionTo(next BetStatus) bool {
	for _, candidate := range betTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Ordinal returns the contract enum value for the status, or -1 if unknown
func (s BetStatus) Ordinal() int {
	for i, status := range betStatusOrdinals {
		if status == s {
			return i
		}
	}
	return -1
}

// Label returns the display label used by the front-end
func (s BetStatus) Label() string {
	if label, ok := betStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// ParseBetStatus accepts a status name ("active") or contract ordinal ("1")
func ParseBetStatus(raw string) (BetStatus, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n >= len(betStatusOrdinals) {
			return "", fmt.Errorf("unknown bet status ordinal %d", n)
		}
		return betStatusOrdinals[n], nil
	}
	status := BetStatus(strings.ReplaceAll(raw, " ", "_"))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown bet status %q", raw)
	}
	return status, nil
}

// Winner represents the declared outcome of a bet
type Winner string

const (
	WinnerNone     Winner = "none"
	WinnerCreator  Winner = "creator"
	WinnerOpponent Winner = "opponent"
	WinnerDraw     Winner = "draw"
)

var winnerOrdinals = []Winner{WinnerNone, WinnerCreator, WinnerOpponent, WinnerDraw}

// IsOutcome reports whether w is a decision a judge may submit
func (w Winner) IsOutcome() bool {
	return w == WinnerCreator || w == WinnerOpponent || w == WinnerDraw
}

// Ordinal returns the contract enum value for the winner, or -1 if unknown
func (w Winner) Ordinal() int {
	for i, winner := range winnerOrdinals {
		if winner == w {
			return i
		}
	}
	return -1
}

// Label returns the display label used by the front-end
func (w Winner) Label() string {
	switch w {
	case WinnerCreator:
		return "Creator"
	case WinnerOpponent:
		return "Opponent"
	case WinnerDraw:
		return "Draw"
	default:
		return "None"
	}
}

// ParseWinner accepts a winner name ("draw") or contract ordinal ("3").
// Unknown input is returned as-is so the ledger can reject it with a typed error.
func ParseWinner(raw string) Winner {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 0 && n < len(winnerOrdinals) {
			return winnerOrdinals[n]
		}
	}
	return Winner(raw)
}

// Bet represents a two-party wager with a designated judge
type Bet struct {
	ID         int64           `db:"id"`
	Creator    common.Address  `db:"creator"`
	Opponent   *common.Address `db:"opponent"` // nil while an open challenge is unaccepted
	Judge      common.Address  `db:"judge"`
	Amount     decimal.Decimal `db:"amount"` // stake per side, in token base units
	Terms      string          `db:"terms"`
	Deadline   time.Time       `db:"deadline"`
	Status     BetStatus       `db:"status"`
	Winner     Winner          `db:"winner"`
	CreatedAt  time.Time       `db:"created_at"`
	AcceptedAt *time.Time      `db:"accepted_at"`
	ResolvedAt *time.Time      `db:"resolved_at"`
}

// BetParams holds the caller-supplied fields for a new bet
type BetParams struct {
	Creator  common.Address
	Opponent *common.Address
	Judge    common.Address
	Amount   decimal.Decimal
	Terms    string
	Deadline time.Time
}

// IsOpenChallenge reports whether any eligible account may accept the bet
func (b *Bet) IsOpenChallenge() bool {
	return b.Opponent == nil
}

// IsParticipant checks if an account is creator or opponent
func (b *Bet) IsParticipant(account common.Address) bool {
	if b.Creator == account {
		return true
	}
	return b.Opponent != nil && *b.Opponent == account
}

// Involves checks if an account is creator, opponent or judge
func (b *Bet) Involves(account common.Address) bool {
	return b.IsParticipant(account) || b.Judge == account
}

// CanBeAccepted checks if the bet can be accepted by the given account
func (b *Bet) CanBeAccepted(caller common.Address) bool {
	if b.Status != BetStatusOpen || caller == b.Creator {
		return false
	}
	return b.Opponent == nil || *b.Opponent == caller
}

// CanBeCancelled checks if the bet can be cancelled by the given account
func (b *Bet) CanBeCancelled(caller common.Address) bool {
	return b.Status == BetStatusOpen && b.Creator == caller
}

// CanBeResolved checks if the judge may resolve the bet at the given time
func (b *Bet) CanBeResolved(caller common.Address, now time.Time) bool {
	return b.Status == BetStatusActive && b.Judge == caller && !now.Before(b.Deadline)
}

// IsDeadlinePassed reports whether resolution is permitted at the given time
func (b *Bet) IsDeadlinePassed(now time.Time) bool {
	return !now.Before(b.Deadline)
}

// Pot returns the total escrow once both sides have staked
func (b *Bet) Pot() decimal.Decimal {
	return b.Amount.Add(b.Amount)
}

// WinnerAccount returns the account that took the pot, if any
func (b *Bet) WinnerAccount() (common.Address, bool) {
	switch b.Winner {
	case WinnerCreator:
		return b.Creator, true
	case WinnerOpponent:
		if b.Opponent != nil {
			return *b.Opponent, true
		}
	}
	return common.Address{}, false
}

// CheckInvariants verifies the status, winner and timestamp fields agree
func (b *Bet) CheckInvariants() error {
	if !b.Status.IsValid() {
		return fmt.Errorf("bet %d has unknown status %q", b.ID, b.Status)
	}
	if b.Status == BetStatusResolved {
		if !b.Winner.IsOutcome() {
			return fmt.Errorf("bet %d is resolved without a winner", b.ID)
		}
		if b.ResolvedAt == nil {
			return fmt.Errorf("bet %d is resolved without a resolution time", b.ID)
		}
	} else {
		if b.Winner != WinnerNone {
			return fmt.Errorf("bet %d has winner %q in status %q", b.ID, b.Winner, b.Status)
		}
		if b.ResolvedAt != nil {
			return fmt.Errorf("bet %d has a resolution time in status %q", b.ID, b.Status)
		}
	}
	if b.Status != BetStatusOpen && b.Status != BetStatusCancelled && b.Opponent == nil {
		return fmt.Errorf("bet %d is %q without an opponent", b.ID, b.Status)
	}
	return nil
}

// Clone returns a deep copy of the bet
func (b *Bet) Clone() *Bet {
	c := *b
	if b.Opponent != nil {
		opponent := *b.Opponent
		c.Opponent = &opponent
	}
	if b.AcceptedAt != nil {
		acceptedAt := *b.AcceptedAt
		c.AcceptedAt = &acceptedAt
	}
	if b.ResolvedAt != nil {
		resolvedAt := *b.ResolvedAt
		c.ResolvedAt = &resolvedAt
	}
	return &c
}
