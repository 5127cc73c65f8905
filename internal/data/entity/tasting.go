package entity

import (
	"time"

	"github.com/google/uuid"
)

type TastingStatus string

const (
	TastingStatusPending             TastingStatus = "pending"
	TastingStatusConfirmed           TastingStatus = "confirmed"
	TastingStatusRescheduleRequested TastingStatus = "reschedule_requested"
	TastingStatusCompleted           TastingStatus = "completed"
)

func (s TastingStatus) IsValid() bool {
	switch s {
	case TastingStatusPending, TastingStatusConfirmed, TastingStatusRescheduleRequested, TastingStatusCompleted:
		return true
	}
	return false
}

// AppointmentStatus is the parent appointment status a session in s implies.
func (s TastingStatus) AppointmentStatus() AppointmentStatus {
	switch s {
	case TastingStatusConfirmed:
		return AppointmentStatusTastingConfirmed
	case TastingStatusRescheduleRequested:
		return AppointmentStatusTastingRescheduleRequested
	case TastingStatusCompleted:
		return AppointmentStatusTastingCompleted
	default:
		return AppointmentStatusPendingTastingConfirmation
	}
}

// TastingStatusFor is the session status matching a tasting appointment
// status. ok is false for statuses outside the tasting workflow.
func TastingStatusFor(s AppointmentStatus) (TastingStatus, bool) {
	switch s {
	case AppointmentStatusPendingTastingConfirmation:
		return TastingStatusPending, true
	case AppointmentStatusTastingConfirmed:
		return TastingStatusConfirmed, true
	case AppointmentStatusTastingRescheduleRequested:
		return TastingStatusRescheduleRequested, true
	case AppointmentStatusTastingCompleted:
		return TastingStatusCompleted, true
	}
	return "", false
}

// ReschedulePreferences is what the customer asked for when declining the
// proposed tasting date. Stored as jsonb.
type ReschedulePreferences struct {
	PreferredDate   string    `json:"preferredDate"`
	PreferredTime   string    `json:"preferredTime"`
	AlternativeDate *string   `json:"alternativeDate,omitempty"`
	AlternativeTime *string   `json:"alternativeTime,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	RequestedAt     time.Time `json:"requestedAt"`
}

type TastingSession struct {
	Base
	AppointmentID         uuid.UUID              `db:"appointment_id"`
	Token                 string                 `db:"token"`
	ProposedDate          time.Time              `db:"proposed_date"`
	ProposedTime          string                 `db:"proposed_time"`
	Status                TastingStatus          `db:"status"`
	ReschedulePreferences *ReschedulePreferences `db:"reschedule_preferences"`
	ConfirmedAt           *time.Time             `db:"confirmed_at"`
	CompletedAt           *time.Time             `db:"completed_at"`
}

// TastingPair joins a session with the status of its appointment.
type TastingPair struct {
	SessionID         uuid.UUID
	AppointmentID     uuid.UUID
	SessionStatus     TastingStatus
	AppointmentStatus AppointmentStatus
}
