package models

import "time"

type AttendeeStatus string

const (
	AttendeeStatusRegistered AttendeeStatus = "registered"
	AttendeeStatusCheckedIn  AttendeeStatus = "checked_in"
	AttendeeStatusCancelled  AttendeeStatus = "cancelled"
)

// Attendee is the subset of the attendees collection the check-in path owns.
// checked_in is terminal and idempotent: a second check-in never overwrites
// CheckInTime, and a cancelled attendee can never become checked_in.
type Attendee struct {
	ID          string         `json:"id" db:"id"`
	EventID     string         `json:"event_id" db:"event_id"`
	Name        string         `json:"name" db:"name"`
	Email       string         `json:"email" db:"email"`
	Status      AttendeeStatus `json:"status" db:"status"`
	CheckInTime *time.Time     `json:"check_in_time,omitempty" db:"check_in_time"`
	CheckedInBy string         `json:"checked_in_by,omitempty" db:"checked_in_by"`
	CodeHash    string         `json:"-" db:"code_hash"`
}
