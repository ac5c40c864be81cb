package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// AccountBetStats aggregates an account's involvement across all bets
type AccountBetStats struct {
	Account       common.Address
	TotalBets     int // as creator or opponent
	TotalJudged   int
	ByStatus      map[BetStatus]int
	TotalWon      int
	TotalLost     int
	TotalDrawn    int
	TotalStaked   decimal.Decimal // sum of stakes the account put up, any status
	TotalWinnings decimal.Decimal // pots collected from won bets
}

// WinPercentage returns the share of decided bets the account won
func (s *AccountBetStats) WinPercentage() float64 {
	decided := s.TotalWon + s.TotalLost
	if decided == 0 {
		return 0
	}
	return float64(s.TotalWon) / float64(decided) * 100
}
