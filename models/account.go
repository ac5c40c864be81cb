package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a wallet address cannot be parsed
var ErrInvalidAddress = errors.New("invalid wallet address")

// ParseAccount parses a 0x-prefixed hex wallet address. The zero address is
// rejected since it never identifies a real party.
func ParseAccount(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	account := common.HexToAddress(raw)
	if IsZeroAccount(account) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return account, nil
}

// ParseOptionalAccount parses an address that may be empty or the zero
// address, both meaning "unset".
func ParseOptionalAccount(raw string) (*common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !common.IsHexAddress(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	account := common.HexToAddress(raw)
	if IsZeroAccount(account) {
		return nil, nil
	}
	return &account, nil
}

// IsZeroAccount reports whether the address is the all-zero sentinel
func IsZeroAccount(account common.Address) bool {
	return account == (common.Address{})
}

// AccountOrZero returns the address or the zero address when nil, matching
// the contract's wire representation of an open challenge
func AccountOrZero(account *common.Address) common.Address {
	if account == nil {
		return common.Address{}
	}
	return *account
}

// ShortAccount truncates an address for log lines and display, e.g. 0x1234...abcd
func ShortAccount(account common.Address) string {
	hex := account.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
