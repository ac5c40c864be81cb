package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mneebet/models"
	"mneebet/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// BetHandler serves the bet lifecycle and bet queries
type BetHandler struct {
	bets     service.BetService
	queries  service.QueryService
	decimals int32
}

// NewBetHandler creates a new bet handler
func NewBetHandler(bets service.BetService, queries service.QueryService, decimals int32) *BetHandler {
	return &BetHandler{
		bets:     bets,
		queries:  queries,
		decimals: decimals,
	}
}

// CreateBet opens a new bet and escrows the caller's stake
// POST /api/bets
func (h *BetHandler) CreateBet(c *gin.Context) {
	var req CreateBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	amount, err := req.resolve(h.decimals)
	if err != nil {
		respondError(c, err)
		return
	}

	judge, err := parseHexAccount(req.Judge)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidJudge, err))
		return
	}

	opponent, err := models.ParseOptionalAccount(req.Opponent)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidOpponent, err))
		return
	}

	bet, err := h.bets.CreateBet(c.Request.Context(), models.BetParams{
		Creator:  caller(c),
		Opponent: opponent,
		Judge:    judge,
		Amount:   amount,
		Terms:    req.Terms,
		Deadline: time.Unix(req.Deadline, 0).UTC(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newBetResponse(bet, h.decimals))
}

// AcceptBet matches the stake and activates the bet
// POST /api/bets/:id/accept
func (h *BetHandler) AcceptBet(c *gin.Context) {
	betID, ok := betIDParam(c)
	if !ok {
		return
	}

	bet, err := h.bets.AcceptBet(c.Request.Context(), betID, caller(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newBetResponse(bet, h.decimals))
}

// CancelBet refunds an unaccepted bet to its creator
// POST /api/bets/:id/cancel
func (h *BetHandler) CancelBet(c *gin.Context) {
	betID, ok := betIDParam(c)
	if !ok {
		return
	}

	bet, err := h.bets.CancelBet(c.Request.Context(), betID, caller(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newBetResponse(bet, h.decimals))
}

// ResolveBet records the judge's decision and pays out
// POST /api/bets/:id/resolve
func (h *BetHandler) ResolveBet(c *gin.Context) {
	betID, ok := betIDParam(c)
	if !ok {
		return
	}

	var req ResolveBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	bet, err := h.bets.ResolveBet(c.Request.Context(), betID, caller(c), req.winner())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newBetResponse(bet, h.decimals))
}

// GetBet returns one bet
// GET /api/bets/:id
func (h *BetHandler) GetBet(c *gin.Context) {
	betID, ok := betIDParam(c)
	if !ok {
		return
	}

	bet, err := h.queries.GetBet(c.Request.Context(), betID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newBetResponse(bet, h.decimals))
}

// Counter returns how many bets exist; ids run from 0 to count-1
// GET /api/bets/counter
func (h *BetHandler) Counter(c *gin.Context) {
	count, err := h.queries.Count(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// ListBets returns bets by status, or by id range defaulting to all
// GET /api/bets?start=&end= or GET /api/bets?status=
func (h *BetHandler) ListBets(c *gin.Context) {
	ctx := c.Request.Context()

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseBetStatus(raw)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		bets, err := h.queries.ListByStatus(ctx, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bets": newBetResponses(bets, h.decimals)})
		return
	}

	start, err := int64Query(c, "start", 0)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	end, err := int64Query(c, "end", -1)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if end < 0 {
		if end, err = h.queries.Count(ctx); err != nil {
			respondError(c, err)
			return
		}
	}

	bets, err := h.queries.ListRange(ctx, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bets": newBetResponses(bets, h.decimals)})
}

// AccountBets returns every bet an account created, accepted or judges
// GET /api/accounts/:address/bets
func (h *BetHandler) AccountBets(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}

	bets, err := h.queries.ListByAccount(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]int64, 0, len(bets))
	for _, bet := range bets {
		ids = append(ids, bet.ID)
	}

	c.JSON(http.StatusOK, gin.H{
		"bet_ids": ids,
		"bets":    newBetResponses(bets, h.decimals),
	})
}

// AccountStats summarizes an account's bets
// GET /api/accounts/:address/stats
func (h *BetHandler) AccountStats(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}

	stats, err := h.queries.Stats(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStatsResponse(stats))
}

func betIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		respondBadRequest(c, fmt.Sprintf("invalid bet id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func addressParam(c *gin.Context) (common.Address, bool) {
	account, err := models.ParseAccount(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return common.Address{}, false
	}
	return account, true
}

func int64Query(c *gin.Context, key string, fallback int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

// parseHexAccount accepts any well-formed address, including zero, so the
// ledger can apply its own role checks
func parseHexAccount(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q", models.ErrInvalidAddress, raw)
	}
	return common.HexToAddress(raw), nil
}
