package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusBooked      AppointmentStatus = "booked"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCanceled    AppointmentStatus = "canceled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusNoShow      AppointmentStatus = "no_show"
)

// Blocking reports whether an appointment in this status occupies the
// provider's calendar and participates in overlap checks.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusBooked || s == StatusRescheduled
}

func (s AppointmentStatus) Known() bool {
	switch s {
	case StatusBooked, StatusRescheduled, StatusCanceled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type Patient struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	Email       string
	Phone       *string
	DateOfBirth *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Provider struct {
	ID          uuid.UUID
	DisplayName string
	Specialty   string
	Email       string
	Phone       *string
	Timezone    string // IANA zone name, falls back to UTC when unrecognized
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityRule is a recurring weekly availability window. Start and end
// are local wall-clock times ("HH:MM" or "HH:MM:SS") without a date.
type AvailabilityRule struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Weekday    int // 1=Monday..7=Sunday at write time; see CanonicalWeekday
	StartTime  string
	EndTime    string
	Location   *string
}

// AvailabilityException is an absolute [StartAt, EndAt) override such as a
// vacation or a manually blocked range.
type AvailabilityException struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	StartAt    time.Time
	EndAt      time.Time
	Reason     *string
	IsBlocking bool
	CreatedAt  time.Time
}

type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	ProviderID  uuid.UUID
	StartAt     time.Time
	EndAt       time.Time
	Status      AppointmentStatus
	OutcomeNote *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartAt, End: a.EndAt}
}

// Slot is a derived bookable candidate. It is never persisted.
type Slot struct {
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Date        string    `json:"date"`
	Weekday     int       `json:"weekday"`
	SlotMinutes int       `json:"slot_minutes"`
}

// Availability is the full answer to an availability query: the provider's
// configuration plus the computed upcoming slots.
type Availability struct {
	Provider   *Provider
	Rules      []AvailabilityRule
	Exceptions []AvailabilityException
	Slots      []Slot
	Timezone   string
}
