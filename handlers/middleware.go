package handlers

import (
	"net/http"
	"time"

	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AccountHeader carries the calling wallet address
const AccountHeader = "X-Account"

const callerKey = "caller"

// RequireCaller rejects requests without a valid X-Account header
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(AccountHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: AccountHeader + " header required",
				Code:  KindUnauthenticated,
			})
			return
		}

		account, err := models.ParseAccount(raw)
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(callerKey, account)
		c.Next()
	}
}

// caller returns the account set by RequireCaller
func caller(c *gin.Context) common.Address {
	return c.MustGet(callerKey).(common.Address)
}

// RequestLogger logs one line per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if raw := c.GetHeader(AccountHeader); raw != "" {
			entry = entry.WithField("caller", raw)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
		} else {
			entry.Debug("HTTP request")
		}
	}
}
