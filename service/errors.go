package service

import (
	"errors"

	"mneebet/models"
)

// Registry errors
var (
	ErrInvalidFormat     = errors.New("username must be 3-20 characters of letters, digits or underscore")
	ErrAlreadyRegistered = errors.New("account already has a username")
	ErrUsernameTaken     = errors.New("username is already taken")
)

// Escrow errors
var (
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrEscrowShortfall       = errors.New("escrow holds less than the requested release")
	ErrFaucetDisabled        = errors.New("faucet is disabled")
	ErrFaucetLimitExceeded   = errors.New("faucet amount exceeds the per-call limit")
	ErrSelfTransfer          = errors.New("cannot transfer to yourself")
)

// Bet ledger errors
var (
	ErrBetNotFound           = errors.New("bet not found")
	ErrInvalidJudge          = errors.New("judge must be a non-zero account different from the creator")
	ErrInvalidOpponent       = errors.New("opponent must differ from the creator")
	ErrInvalidAmount         = models.ErrInvalidAmount
	ErrAmountTooLow          = errors.New("amount is below the minimum stake")
	ErrDeadlineTooSoon       = errors.New("deadline is too soon")
	ErrEmptyTerms            = errors.New("terms cannot be empty")
	ErrTermsTooShort         = errors.New("terms are too short")
	ErrNotOpen               = errors.New("bet is not open")
	ErrNotAuthorizedOpponent = errors.New("caller is not authorized to accept this bet")
	ErrNotCreator            = errors.New("only the creator can cancel this bet")
	ErrNotActive             = errors.New("bet is not active")
	ErrNotJudge              = errors.New("only the judge can resolve this bet")
	ErrDeadlineNotReached    = errors.New("deadline has not been reached")
	ErrInvalidWinner         = errors.New("winner must be creator, opponent or draw")
	ErrInvalidTransition     = errors.New("invalid bet status transition")
)

// ErrorKind groups errors by who has to act on them
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindStateConflict ErrorKind = "state_conflict"
	KindNotFound      ErrorKind = "not_found"
	KindEscrow        ErrorKind = "escrow"
	KindInternal      ErrorKind = "internal"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidFormat, KindValidation},
	{ErrInvalidJudge, KindValidation},
	{ErrInvalidOpponent, KindValidation},
	{ErrInvalidAmount, KindValidation},
	{models.ErrInvalidAddress, KindValidation},
	{ErrAmountTooLow, KindValidation},
	{ErrDeadlineTooSoon, KindValidation},
	{ErrEmptyTerms, KindValidation},
	{ErrTermsTooShort, KindValidation},
	{ErrInvalidWinner, KindValidation},
	{ErrFaucetLimitExceeded, KindValidation},
	{ErrSelfTransfer, KindValidation},

	{ErrNotAuthorizedOpponent, KindAuthorization},
	{ErrNotCreator, KindAuthorization},
	{ErrNotJudge, KindAuthorization},
	{ErrFaucetDisabled, KindAuthorization},

	{ErrAlreadyRegistered, KindStateConflict},
	{ErrUsernameTaken, KindStateConflict},
	{ErrNotOpen, KindStateConflict},
	{ErrNotActive, KindStateConflict},
	{ErrDeadlineNotReached, KindStateConflict},
	{ErrInvalidTransition, KindStateConflict},

	{ErrBetNotFound, KindNotFound},

	{ErrInsufficientAllowance, KindEscrow},
	{ErrInsufficientBalance, KindEscrow},
	{ErrEscrowShortfall, KindEscrow},
}

// KindOf classifies an error returned by any service. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, entry := range errorKinds {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
