package pool

import "time"

// Pool lifecycle.
const (
	StatusOpen     = "open"
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Application outcomes. Decisions are terminal.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Pool is a worker pool an organizer staffs for one event.
type Pool struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	EventID     string    `gorm:"column:event_id;index:idx_pool_event_org,unique" json:"event_id"`
	OrganizerID string    `gorm:"column:organizer_id;index:idx_pool_event_org,unique" json:"organizer_id"`
	Name        string    `gorm:"column:name" json:"name"`
	Capacity    int       `gorm:"column:capacity" json:"capacity"`
	MemberCount int       `gorm:"column:member_count" json:"member_count"`
	Status      string    `gorm:"column:status;index" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

type Member struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	PoolID    string    `gorm:"column:pool_id;index:idx_member_pool_gig,unique" json:"pool_id"`
	EventID   string    `gorm:"column:event_id;index" json:"event_id"`
	GigID     string    `gorm:"column:gig_id;index:idx_member_pool_gig,unique" json:"gig_id"`
	Rate      string    `gorm:"column:rate" json:"rate"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

type Application struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	PoolID       string    `gorm:"column:pool_id;index:idx_application_pool_gig,unique" json:"pool_id"`
	GigID        string    `gorm:"column:gig_id;index:idx_application_pool_gig,unique" json:"gig_id"`
	ProposedRate string    `gorm:"column:proposed_rate" json:"proposed_rate"`
	Status       string    `gorm:"column:status;index" json:"status"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}
