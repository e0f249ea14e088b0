package ledger

import (
	"time"

	"github.com/ksred/summit-api/internal/metrics"
	"github.com/ksred/summit-api/internal/reference"
	"github.com/ksred/summit-api/internal/types"
)

// DepositRequest credits an owned account.
type DepositRequest struct {
	AccountID      uint        `json:"-"`
	Amount         types.Money `json:"amount"`
	IdempotencyKey string      `json:"-"`
}

// TransferRequest moves cash from an owned account to any other account.
type TransferRequest struct {
	FromAccountID  uint        `json:"from_account_id"`
	ToAccountID    uint        `json:"to_account_id"`
	Amount         types.Money `json:"amount"`
	Description    string      `json:"description"`
	IdempotencyKey string      `json:"-"`
}

// OpenAccountRequest creates an account for an identity with an optional opening balance.
type OpenAccountRequest struct {
	Owner          string            `json:"owner"`
	Type           types.AccountType `json:"type"`
	InitialDeposit *types.Money      `json:"initial_deposit,omitempty"`
}

// FreezeRequest sets or clears the frozen flag on an account.
type FreezeRequest struct {
	Frozen bool `json:"frozen"`
}

// Options configures a Service. Zero values fall back to production defaults.
type Options struct {
	References          reference.Generator
	Clock               func() time.Time
	Metrics             *metrics.Recorder
	SavingsOnlyDeposits bool
	IdempotencyTTL      time.Duration
}

const (
	depositDescription        = "Deposit"
	initialDepositDescription = "Initial deposit"
)
