package badge

import "time"

// Badge is an admin-defined achievement. MinEvents and KYCRequired are the
// base gate; Criteria, when set, is a CEL expression over the attributes
// completed_events (int), kyc_verified (bool) and rating (double) that must
// also hold.
type Badge struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	IconURL     string    `gorm:"column:icon_url" json:"icon_url"`
	MinEvents   int64     `gorm:"column:min_events" json:"min_events"`
	KYCRequired bool      `gorm:"column:kyc_required" json:"kyc_required"`
	Criteria    string    `gorm:"column:criteria" json:"criteria"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// UserBadge is an award. At most one per (user, badge); awards are never
// revoked, recomputation only adds.
type UserBadge struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;index:idx_user_badge,unique" json:"user_id"`
	BadgeID   string    `gorm:"column:badge_id;index:idx_user_badge,unique" json:"badge_id"`
	AwardedAt time.Time `gorm:"column:awarded_at" json:"awarded_at"`
	ChainTx   string    `gorm:"column:chain_tx" json:"-"`

	Badge *Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

// Entry is one leaderboard row.
type Entry struct {
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	BadgeCount int64   `json:"badge_count"`
	Rating     float64 `json:"rating"`
}
