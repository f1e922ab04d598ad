package notification

import "time"

// Notification kinds fanned out by the other services.
const (
	KindApplicationAccepted = "application_accepted"
	KindApplicationRejected = "application_rejected"
	KindEscrowReleased      = "escrow_released"
	KindBadgeAwarded        = "badge_awarded"
	KindDisputeResolved     = "dispute_resolved"
	KindKYCDecision         = "kyc_decision"
)

type Notification struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;index" json:"user_id"`
	Kind        string    `gorm:"column:kind" json:"kind"`
	Title       string    `gorm:"column:title" json:"title"`
	Body        string    `gorm:"column:body" json:"body"`
	ReferenceID string    `gorm:"column:reference_id" json:"reference_id"`
	Read        bool      `gorm:"column:read" json:"read"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}
