package escrow

import "time"

// Escrow lifecycle: funded -> in_progress -> released. Funding with hold, or
// the first check-in on the event, moves the contract to in_progress.
const (
	StatusFunded     = "funded"
	StatusInProgress = "in_progress"
	StatusReleased   = "released"
)

// Payment kinds and states.
const (
	PaymentFund   = "fund"
	PaymentPayout = "payout"

	PaymentCreated  = "created"
	PaymentCaptured = "captured"
	PaymentPaid     = "paid"
)

// Contract is the platform-held escrow for one event's budget.
type Contract struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	EventID      string    `gorm:"column:event_id;uniqueIndex" json:"event_id"`
	HostID       string    `gorm:"column:host_id;index" json:"host_id"`
	OrganizerID  string    `gorm:"column:organizer_id;index" json:"organizer_id"`
	Total        string    `gorm:"column:total" json:"total"`
	OrganizerPct int64     `gorm:"column:organizer_pct" json:"organizer_pct"`
	GigsPct      int64     `gorm:"column:gigs_pct" json:"gigs_pct"`
	PlatformPct  int64     `gorm:"column:platform_pct" json:"platform_pct"`
	Status       string    `gorm:"column:status;index" json:"status"`
	OrderID      string    `gorm:"column:order_id;index" json:"order_id"`
	ReceiptCode  string    `gorm:"column:receipt_code" json:"receipt_code"`
	ChainTx      string    `gorm:"column:chain_tx" json:"chain_tx"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Payment is one money movement attached to an escrow: the funding payment
// in, and one payout row per payee on release.
type Payment struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	ContractID  string    `gorm:"column:contract_id;index" json:"contract_id"`
	EventID     string    `gorm:"column:event_id;index" json:"event_id"`
	PayerID     string    `gorm:"column:payer_id" json:"payer_id"`
	PayeeID     string    `gorm:"column:payee_id;index" json:"payee_id"`
	Amount      string    `gorm:"column:amount" json:"amount"`
	Method      string    `gorm:"column:method" json:"method"`
	Kind        string    `gorm:"column:kind" json:"kind"`
	Status      string    `gorm:"column:status" json:"status"`
	ReferenceID string    `gorm:"column:reference_id" json:"reference_id"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}
