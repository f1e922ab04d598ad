package dispute

import (
	"time"

	"gorm.io/datatypes"
)

// Dispute states. Open disputes wait on an admin decision; resolved and
// rejected are terminal.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
	StatusRejected = "rejected"
)

// Dispute is a complaint raised against an event, typically about attendance
// hours or a payout. One open dispute per (event, raiser).
type Dispute struct {
	ID         string         `gorm:"column:id;primaryKey" json:"id"`
	EventID    string         `gorm:"column:event_id;index" json:"event_id"`
	RaisedBy   string         `gorm:"column:raised_by;index" json:"raised_by"`
	Reason     string         `gorm:"column:reason" json:"reason"`
	Evidence   datatypes.JSON `gorm:"column:evidence" json:"evidence,omitempty"`
	Status     string         `gorm:"column:status;index" json:"status"`
	Resolution string         `gorm:"column:resolution" json:"resolution"`
	DecidedBy  string         `gorm:"column:decided_by" json:"decided_by,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at" json:"updated_at"`
}
