package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount is not a non-negative integer
// number of base units after scaling
var ErrInvalidAmount = errors.New("invalid token amount")

// MaxTokenAmount is the largest balance a uint256 token can hold
var MaxTokenAmount = decimal.NewFromBigInt(math.MaxBig256, 0)

// ExceedsMaxAmount reports whether amount cannot be held by a token balance
func ExceedsMaxAmount(amount decimal.Decimal) bool {
	return amount.GreaterThan(MaxTokenAmount)
}

// ParseTokenAmount converts a human-entered decimal string ("12.5") into
// token base units using the token's declared decimal count. Input with more
// fractional digits than the token supports is rejected rather than rounded.
func ParseTokenAmount(raw string, decimals int32) (decimal.Decimal, error) {
	human, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	base := human.Shift(decimals)
	if !base.IsInteger() {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, raw, decimals)
	}
	if base.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	if ExceedsMaxAmount(base) {
		return decimal.Zero, fmt.Errorf("%w: %q exceeds the token maximum", ErrInvalidAmount, raw)
	}
	return base, nil
}

// ParseBaseUnits parses an integer amount already expressed in base units
func ParseBaseUnits(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !amount.IsInteger() || amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidAmount, raw)
	}
	if ExceedsMaxAmount(amount) {
		return decimal.Zero, fmt.Errorf("%w: %q exceeds the token maximum", ErrInvalidAmount, raw)
	}
	return amount, nil
}

// FormatTokenAmount converts base units back into an exact human string
func FormatTokenAmount(amount decimal.Decimal, decimals int32) string {
	return amount.Shift(-decimals).String()
}

// FormatTokenAmountFixed converts base units into a human string with a fixed
// number of places, truncating toward zero like the front-end display does
func FormatTokenAmountFixed(amount decimal.Decimal, decimals int32, places int32) string {
	return amount.Shift(-decimals).Truncate(places).StringFixed(places)
}
