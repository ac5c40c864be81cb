package handlers

import (
	"fmt"
	"time"

	"mneebet/models"

	"github.com/shopspring/decimal"
)

// AmountRequest accepts either raw base units or a human decimal string
type AmountRequest struct {
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// resolve returns the amount in base units
func (r AmountRequest) resolve(decimals int32) (decimal.Decimal, error) {
	switch {
	case r.Amount != "" && r.AmountDisplay != "":
		return decimal.Zero, fmt.Errorf("%w: set only one of amount and amount_display", models.ErrInvalidAmount)
	case r.Amount != "":
		return models.ParseBaseUnits(r.Amount)
	case r.AmountDisplay != "":
		return models.ParseTokenAmount(r.AmountDisplay, decimals)
	default:
		return decimal.Zero, fmt.Errorf("%w: amount is required", models.ErrInvalidAmount)
	}
}

// CreateBetRequest is the body of POST /api/bets. Deadline is unix seconds.
type CreateBetRequest struct {
	AmountRequest
	Opponent string `json:"opponent"`
	Judge    string `json:"judge" binding:"required"`
	Terms    string `json:"terms"`
	Deadline int64  `json:"deadline" binding:"required"`
}

// ResolveBetRequest is the body of POST /api/bets/:id/resolve. Winner is a
// name ("creator") or a contract ordinal (1).
type ResolveBetRequest struct {
	Winner any `json:"winner"`
}

func (r ResolveBetRequest) winner() models.Winner {
	switch v := r.Winner.(type) {
	case string:
		return models.ParseWinner(v)
	case float64:
		if v != float64(int64(v)) {
			return models.Winner(fmt.Sprint(v))
		}
		return models.ParseWinner(fmt.Sprint(int64(v)))
	case nil:
		return models.WinnerNone
	default:
		return models.Winner(fmt.Sprint(v))
	}
}

// TransferRequest is the body of POST /api/token/transfer
type TransferRequest struct {
	AmountRequest
	To string `json:"to" binding:"required"`
}

// RegisterUsernameRequest is the body of POST /api/usernames
type RegisterUsernameRequest struct {
	Username string `json:"username"`
}

// BetResponse mirrors the contract's bet tuple plus display fields
type BetResponse struct {
	ID            int64      `json:"id"`
	Creator       string     `json:"creator"`
	Opponent      string     `json:"opponent"` // zero address for an unaccepted open challenge
	Judge         string     `json:"judge"`
	Amount        string     `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	Terms         string     `json:"terms"`
	Deadline      int64      `json:"deadline"`
	Status        string     `json:"status"`
	StatusCode    int        `json:"status_code"`
	StatusLabel   string     `json:"status_label"`
	Winner        string     `json:"winner"`
	WinnerCode    int        `json:"winner_code"`
	CreatedAt     time.Time  `json:"created_at"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func newBetResponse(bet *models.Bet, decimals int32) BetResponse {
	return BetResponse{
		ID:            bet.ID,
		Creator:       bet.Creator.Hex(),
		Opponent:      models.AccountOrZero(bet.Opponent).Hex(),
		Judge:         bet.Judge.Hex(),
		Amount:        bet.Amount.String(),
		AmountDisplay: models.FormatTokenAmount(bet.Amount, decimals),
		Terms:         bet.Terms,
		Deadline:      bet.Deadline.Unix(),
		Status:        string(bet.Status),
		StatusCode:    bet.Status.Ordinal(),
		StatusLabel:   bet.Status.Label(),
		Winner:        string(bet.Winner),
		WinnerCode:    bet.Winner.Ordinal(),
		CreatedAt:     bet.CreatedAt,
		AcceptedAt:    bet.AcceptedAt,
		ResolvedAt:    bet.ResolvedAt,
	}
}

func newBetResponses(bets []*models.Bet, decimals int32) []BetResponse {
	responses := make([]BetResponse, 0, len(bets))
	for _, bet := range bets {
		responses = append(responses, newBetResponse(bet, decimals))
	}
	return responses
}

// StatsResponse summarizes an account's bets
type StatsResponse struct {
	Account       string         `json:"account"`
	TotalBets     int            `json:"total_bets"`
	TotalJudged   int            `json:"total_judged"`
	ByStatus      map[string]int `json:"by_status"`
	Won           int            `json:"won"`
	Lost          int            `json:"lost"`
	Drawn         int            `json:"drawn"`
	WinPercentage float64        `json:"win_percentage"`
	TotalStaked   string         `json:"total_staked"`
	TotalWinnings string         `json:"total_winnings"`
}

func newStatsResponse(stats *models.AccountBetStats) StatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	return StatsResponse{
		Account:       stats.Account.Hex(),
		TotalBets:     stats.TotalBets,
		TotalJudged:   stats.TotalJudged,
		ByStatus:      byStatus,
		Won:           stats.TotalWon,
		Lost:          stats.TotalLost,
		Drawn:         stats.TotalDrawn,
		WinPercentage: stats.WinPercentage(),
		TotalStaked:   stats.TotalStaked.String(),
		TotalWinnings: stats.TotalWinnings.String(),
	}
}

// HistoryEntryResponse is one balance change
type HistoryEntryResponse struct {
	ID            int64          `json:"id"`
	Type          string         `json:"type"`
	BalanceBefore string         `json:"balance_before"`
	BalanceAfter  string         `json:"balance_after"`
	Change        string         `json:"change"`
	BetID         *int64         `json:"bet_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newHistoryResponses(history []*models.BalanceHistory) []HistoryEntryResponse {
	responses := make([]HistoryEntryResponse, 0, len(history))
	for _, h := range history {
		responses = append(responses, HistoryEntryResponse{
			ID:            h.ID,
			Type:          string(h.TransactionType),
			BalanceBefore: h.BalanceBefore.String(),
			BalanceAfter:  h.BalanceAfter.String(),
			Change:        h.ChangeAmount.String(),
			BetID:         h.RelatedBetID,
			Metadata:      h.TransactionMetadata,
			CreatedAt:     h.CreatedAt,
		})
	}
	return responses
}
