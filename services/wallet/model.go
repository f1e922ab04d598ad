package wallet

import (
	"time"
)

// Entry types recorded in the wallet ledger.
const (
	EntryTopup      = "topup"
	EntryWithdrawal = "withdrawal"
	EntryEscrowFund = "escrow_fund"
	EntryPayout     = "escrow_payout"
)

// Topup order states.
const (
	TopupPending = "pending"
	TopupPaid    = "paid"
)

// Wallet holds a user's platform balance. Balance is the canonical
// two-decimal string so the same comparison semantics work on every dialect.
type Wallet struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;uniqueIndex" json:"user_id"`
	Balance   string    `gorm:"column:balance" json:"balance"`
	UpiID     string    `gorm:"column:upi_id" json:"upi_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Entry is one immutable ledger row per balance mutation.
type Entry struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	WalletID    string    `gorm:"column:wallet_id;index" json:"wallet_id"`
	UserID      string    `gorm:"column:user_id;index" json:"user_id"`
	Type        string    `gorm:"column:type" json:"type"`
	Direction   string    `gorm:"column:direction" json:"direction"` // credit | debit
	Amount      string    `gorm:"column:amount" json:"amount"`
	ReferenceID string    `gorm:"column:reference_id;index" json:"reference_id"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TopupOrder tracks a payment-gateway order created for a wallet top-up.
type TopupOrder struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;index" json:"user_id"`
	OrderID   string    `gorm:"column:order_id;uniqueIndex" json:"order_id"`
	Amount    string    `gorm:"column:amount" json:"amount"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}
