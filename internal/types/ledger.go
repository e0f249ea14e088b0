package types

import "time"

type AccountType string

const (
	Checking AccountType = "CHECKING"
	Savings  AccountType = "SAVINGS"
)

func (t AccountType) Valid() bool { return t == Checking || t == Savings }

// Account is a cash account owned by a single identity.
type Account struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Owner     string      `gorm:"index;not null" json:"owner"`
	Type      AccountType `gorm:"size:16;not null" json:"type"`
	Balance   Money       `gorm:"not null" json:"balance"`
	Frozen    bool        `gorm:"not null;default:false" json:"frozen"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type TransactionType string

const (
	DepositTransaction  TransactionType = "DEPOSIT"
	TransferTransaction TransactionType = "TRANSFER"
)

// Transaction is the immutable record of a committed deposit or transfer.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	Reference     string          `gorm:"uniqueIndex;size:64;not null" json:"transaction_reference"`
	Type          TransactionType `gorm:"size:16;not null" json:"type"`
	FromAccountID *uint           `json:"from_account_id"`
	ToAccountID   uint            `gorm:"not null" json:"to_account_id"`
	Amount        Money           `gorm:"not null" json:"amount"`
	Description   string          `json:"description"`
	Timestamp     time.Time       `gorm:"column:occurred_at;not null" json:"timestamp"`
}

// Involves reports whether the transaction touches any of the given accounts.
func (t *Transaction) Involves(accountIDs map[uint]bool) bool {
	if t.FromAccountID != nil && accountIDs[*t.FromAccountID] {
		return true
	}
	return accountIDs[t.ToAccountID]
}

const (
	IdempotencyTransaction = "transaction"
	IdempotencyTrade       = "trade"
)

// IdempotencyRecord maps a caller-supplied key to the record its first request produced.
type IdempotencyRecord struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Identity     string    `gorm:"uniqueIndex:idx_idempotency_identity_key;not null" json:"identity"`
	Key          string    `gorm:"column:idempotency_key;uniqueIndex:idx_idempotency_identity_key;not null" json:"idempotency_key"`
	ResourceType string    `gorm:"size:16;not null" json:"resource_type"`
	Reference    string    `gorm:"size:64;not null" json:"reference"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expires_at"`
}
