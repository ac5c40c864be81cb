package handlers

import (
	"net/http"

	"mneebet/service"

	"github.com/gin-gonic/gin"
)

// UsernameHandler serves the username registry
type UsernameHandler struct {
	registry service.RegistryService
}

// NewUsernameHandler creates a new username handler
func NewUsernameHandler(registry service.RegistryService) *UsernameHandler {
	return &UsernameHandler{registry: registry}
}

// Register binds a permanent username to the caller
// POST /api/usernames
func (h *UsernameHandler) Register(c *gin.Context) {
	var req RegisterUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	binding, err := h.registry.Register(c.Request.Context(), caller(c), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"address":       binding.Account.Hex(),
		"username":      binding.Username,
		"registered_at": binding.RegisteredAt,
	})
}

// ByAddress returns the username for an address, empty if unregistered
// GET /api/usernames/by-address/:address
func (h *UsernameHandler) ByAddress(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}

	username, found, err := h.registry.LookupByAccount(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    account.Hex(),
		"username":   username,
		"registered": found,
	})
}

// ByUsername returns the address owning a username, zero if unclaimed
// GET /api/usernames/:username
func (h *UsernameHandler) ByUsername(c *gin.Context) {
	username := c.Param("username")

	account, found, err := h.registry.LookupByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    account.Hex(),
		"username":   username,
		"registered": found,
	})
}
