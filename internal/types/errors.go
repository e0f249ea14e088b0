package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("you do not have permission")
	ErrAccountFrozen  = errors.New("account is frozen")
	ErrPersistence    = errors.New("persistence failure")

	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("not enough shares available")
	ErrInsufficientShares    = errors.New("not enough shares in position")

	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrInstrumentNotFound  = fmt.Errorf("stock %w", ErrNotFound)
	ErrPositionNotFound    = fmt.Errorf("position %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)

// Kind returns a stable label for the error class of err, used for metrics and API error codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAccountFrozen):
		return "account_frozen"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	default:
		return "persistence"
	}
}

// IsRejection reports whether err is a business or validation rejection rather than a system failure.
func IsRejection(err error) bool {
	return err != nil && Kind(err) != "persistence"
}
