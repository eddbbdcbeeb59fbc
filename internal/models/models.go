package models

import "time"

type Status string

const (
	StatusCancelled Status = "CANCELLED"
	StatusConfirmed Status = "CONFIRMED"
)

// IsActive reports whether an appointment with this status occupies its slot.
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

func (s Status) Valid() bool {
	return s == StatusCancelled || s == StatusConfirmed
}

type Appointment struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	MobileNumber string    `db:"mobile_number"`
	Date         string    `db:"date"`
	StartTime    string    `db:"start_time"`
	EndTime      string    `db:"end_time"`
	Status       Status    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// SameSlot reports whether both appointments claim the same date, start and end.
func (a *Appointment) SameSlot(other *Appointment) bool {
	return a.Date == other.Date && a.StartTime == other.StartTime && a.EndTime == other.EndTime
}

type ListFilter struct {
	Page   int
	Limit  int
	Search string
}
