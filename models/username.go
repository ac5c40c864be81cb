package models

import (
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Username binds a wallet address to its permanent handle
type Username struct {
	Account      common.Address `db:"address"`
	Username     string         `db:"username"`
	RegisteredAt time.Time      `db:"registered_at"`
}

// IsValidUsername checks length and charset of a handle
func IsValidUsername(name string) bool {
	if len(name) < UsernameMinLength || len(name) > UsernameMaxLength {
		return false
	}
	return usernamePattern.MatchString(name)
}
