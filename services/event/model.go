package event

import "time"

// Event lifecycle. Transitions are forward-only: published -> in_progress ->
// completed.
const (
	StatusPublished  = "published"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Event struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	HostID      string    `gorm:"column:host_id;index" json:"host_id"`
	OrganizerID string    `gorm:"column:organizer_id;index" json:"organizer_id"`
	Title       string    `gorm:"column:title" json:"title"`
	Slug        string    `gorm:"column:slug;uniqueIndex" json:"slug"`
	Description string    `gorm:"column:description" json:"description"`
	Address     string    `gorm:"column:address" json:"address"`
	Latitude    float64   `gorm:"column:latitude" json:"latitude"`
	Longitude   float64   `gorm:"column:longitude" json:"longitude"`
	Budget      string    `gorm:"column:budget" json:"budget"`
	StartDate   time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate     time.Time `gorm:"column:end_date" json:"end_date"`
	Status      string    `gorm:"column:status;index" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Reconcile computes the status an event should hold at now. It is pure and
// monotonic so the lazy read path and the periodic sweep always agree.
func Reconcile(ev *Event, now time.Time) string {
	if ev.Status == StatusCompleted {
		return StatusCompleted
	}
	if !now.Before(ev.EndDate) {
		return StatusCompleted
	}
	if !now.Before(ev.StartDate) {
		return StatusInProgress
	}
	return ev.Status
}
