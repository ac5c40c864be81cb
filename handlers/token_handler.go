package handlers

import (
	"net/http"
	"strconv"

	"mneebet/models"
	"mneebet/service"

	"github.com/gin-gonic/gin"
)

// TokenHandler serves the stake token surface
type TokenHandler struct {
	tokens    service.TokenService
	transfers service.TransferService
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens service.TokenService, transfers service.TransferService) *TokenHandler {
	return &TokenHandler{
		tokens:    tokens,
		transfers: transfers,
	}
}

// Info returns the token symbol and decimals
// GET /api/token
func (h *TokenHandler) Info(c *gin.Context) {
	info := h.tokens.Info()
	c.JSON(http.StatusOK, gin.H{
		"symbol":   info.Symbol,
		"decimals": info.Decimals,
	})
}

// Balance returns an account's spendable balance
// GET /api/token/balance/:address
func (h *TokenHandler) Balance(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}

	balance, err := h.tokens.BalanceOf(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	decimals := h.tokens.Info().Decimals
	c.JSON(http.StatusOK, gin.H{
		"address":         account.Hex(),
		"balance":         balance.String(),
		"balance_display": models.FormatTokenAmountFixed(balance, decimals, 2),
	})
}

// Allowance returns how much the ledger may still pull from an account
// GET /api/token/allowance/:address
func (h *TokenHandler) Allowance(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}

	allowance, err := h.tokens.Allowance(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":   account.Hex(),
		"allowance": allowance.String(),
	})
}

// Approve sets the caller's allowance
// POST /api/token/approve
func (h *TokenHandler) Approve(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	amount, err := req.resolve(h.tokens.Info().Decimals)
	if err != nil {
		respondError(c, err)
		return
	}

	account := caller(c)
	if err := h.tokens.Approve(c.Request.Context(), account, amount); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":   account.Hex(),
		"allowance": amount.String(),
	})
}

// Faucet mints test tokens to the caller
// POST /api/token/faucet
func (h *TokenHandler) Faucet(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	amount, err := req.resolve(h.tokens.Info().Decimals)
	if err != nil {
		respondError(c, err)
		return
	}

	account := caller(c)
	balance, err := h.tokens.Mint(c.Request.Context(), account, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": account.Hex(),
		"minted":  amount.String(),
		"balance": balance.String(),
	})
}

// Transfer sends spendable tokens from the caller to another account
// POST /api/token/transfer
func (h *TokenHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	amount, err := req.resolve(h.tokens.Info().Decimals)
	if err != nil {
		respondError(c, err)
		return
	}

	to, err := models.ParseAccount(req.To)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.transfers.Transfer(c.Request.Context(), caller(c), to, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":           result.From.Hex(),
		"to":             result.To.Hex(),
		"amount":         result.Amount.String(),
		"sender_balance": result.SenderBalance.String(),
	})
}

// History returns an account's recent balance changes, newest first
// GET /api/token/history/:address?limit=
func (h *TokenHandler) History(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	history, err := h.tokens.History(c.Request.Context(), account, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": newHistoryResponses(history)})
}
