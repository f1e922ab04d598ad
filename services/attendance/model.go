package attendance

import "time"

const (
	StatusCheckedIn = "checked_in"
	StatusCompleted = "completed"
)

// reopenWindow is the worked duration under which a closed session may be
// reopened by a fresh check-in. Guards against accidental checkouts.
const reopenWindow = 5 * time.Minute

// Attendance is the single work session of a gig on an event; the unique
// (event_id, gig_id) index makes concurrent check-ins collapse to one row.
type Attendance struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	EventID   string     `gorm:"column:event_id;uniqueIndex:idx_attendance_event_gig" json:"event_id"`
	GigID     string     `gorm:"column:gig_id;uniqueIndex:idx_attendance_event_gig" json:"gig_id"`
	CheckIn   time.Time  `gorm:"column:check_in" json:"check_in"`
	CheckOut  *time.Time `gorm:"column:check_out" json:"check_out"`
	Hours     string     `gorm:"column:hours" json:"hours"`
	Status    string     `gorm:"column:status;index" json:"status"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}
