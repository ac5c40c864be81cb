package handlers

import (
	"context"
	"net/http"
	"time"

	"mneebet/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer calls into
type Services struct {
	Registry  service.RegistryService
	Tokens    service.TokenService
	Transfers service.TransferService
	Bets      service.BetService
	Queries   service.QueryService
}

// RouterConfig holds HTTP-only settings
type RouterConfig struct {
	CORSOrigins []string
	Release     bool
	HealthCheck func(ctx context.Context) error // nil means always healthy
}

// NewRouter builds the gin engine with every route registered
func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/healthz", healthz(cfg.HealthCheck))

	decimals := svc.Tokens.Info().Decimals
	bets := NewBetHandler(svc.Bets, svc.Queries, decimals)
	usernames := NewUsernameHandler(svc.Registry)
	tokens := NewTokenHandler(svc.Tokens, svc.Transfers)

	api := router.Group("/api")
	{
		api.GET("/bets", bets.ListBets)
		api.GET("/bets/counter", bets.Counter)
		api.GET("/bets/:id", bets.GetBet)
		api.GET("/accounts/:address/bets", bets.AccountBets)
		api.GET("/accounts/:address/stats", bets.AccountStats)

		api.GET("/usernames/by-address/:address", usernames.ByAddress)
		api.GET("/usernames/:username", usernames.ByUsername)

		api.GET("/token", tokens.Info)
		api.GET("/token/balance/:address", tokens.Balance)
		api.GET("/token/allowance/:address", tokens.Allowance)
		api.GET("/token/history/:address", tokens.History)
	}

	authed := api.Group("")
	authed.Use(RequireCaller())
	{
		authed.POST("/bets", bets.CreateBet)
		authed.POST("/bets/:id/accept", bets.AcceptBet)
		authed.POST("/bets/:id/cancel", bets.CancelBet)
		authed.POST("/bets/:id/resolve", bets.ResolveBet)

		authed.POST("/usernames", usernames.Register)

		authed.POST("/token/approve", tokens.Approve)
		authed.POST("/token/faucet", tokens.Faucet)
		authed.POST("/token/transfer", tokens.Transfer)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", AccountHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthz(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
