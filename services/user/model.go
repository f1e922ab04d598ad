package user

import "time"

// Roles are fixed at registration and never change afterwards.
const (
	RoleHost      = "host"
	RoleOrganizer = "organizer"
	RoleGig       = "gig"
	RoleAdmin     = "admin"
)

// KYC states.
const (
	KYCPending   = "pending"
	KYCSubmitted = "submitted"
	KYCApproved  = "approved"
	KYCRejected  = "rejected"
)

type User struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Name         string    `gorm:"column:name" json:"name"`
	Email        string    `gorm:"column:email;uniqueIndex" json:"email"`
	Phone        string    `gorm:"column:phone;uniqueIndex" json:"phone"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	Role         string    `gorm:"column:role;index" json:"role"`
	AvatarURL    string    `gorm:"column:avatar_url" json:"avatar_url"`
	KYCStatus    string    `gorm:"column:kyc_status;index" json:"kyc_status"`
	KYCDocument  string    `gorm:"column:kyc_document" json:"-"`
	Banned       bool      `gorm:"column:banned" json:"banned"`
	ChainTx      string    `gorm:"column:chain_tx" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Review is a 1-5 rating left for a gig or organizer on a completed event.
type Review struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	EventID    string    `gorm:"column:event_id;index:idx_review_once,unique" json:"event_id"`
	ReviewerID string    `gorm:"column:reviewer_id;index:idx_review_once,unique" json:"reviewer_id"`
	RevieweeID string    `gorm:"column:reviewee_id;index:idx_review_once,unique" json:"reviewee_id"`
	Rating     int       `gorm:"column:rating" json:"rating"`
	Comment    string    `gorm:"column:comment" json:"comment"`
	ChainTx    string    `gorm:"column:chain_tx" json:"-"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}
