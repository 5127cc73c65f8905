package response

import (
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/pkg/utils"
)

// TastingResponse never carries the capability token.
type TastingResponse struct {
	ID                    string                        `json:"id"`
	AppointmentID         string                        `json:"appointment_id"`
	ProposedDate          string                        `json:"proposed_date"`
	ProposedTime          string                        `json:"proposed_time"`
	Status                entity.TastingStatus          `json:"status"`
	ReschedulePreferences *entity.ReschedulePreferences `json:"reschedule_preferences,omitempty"`
	ConfirmedAt           *time.Time                    `json:"confirmed_at,omitempty"`
	CompletedAt           *time.Time                    `json:"completed_at,omitempty"`
	CreatedAt             time.Time                     `json:"created_at"`
	UpdatedAt             time.Time                     `json:"updated_at"`
}

// PublicTastingResponse is what a token holder sees.
type PublicTastingResponse struct {
	ProposedDate      string                   `json:"proposed_date"`
	ProposedTime      string                   `json:"proposed_time"`
	Status            entity.TastingStatus     `json:"status"`
	EventType         entity.EventType         `json:"event_type"`
	EventDate         string                   `json:"event_date"`
	ContactName       string                   `json:"contact_name"`
	AppointmentStatus entity.AppointmentStatus `json:"appointment_status"`
}

func TastingToResponse(t *entity.TastingSession) TastingResponse {
	return TastingResponse{
		ID:                    t.ID.String(),
		AppointmentID:         t.AppointmentID.String(),
		ProposedDate:          t.ProposedDate.Format(utils.DateLayout),
		ProposedTime:          t.ProposedTime,
		Status:                t.Status,
		ReschedulePreferences: t.ReschedulePreferences,
		ConfirmedAt:           t.ConfirmedAt,
		CompletedAt:           t.CompletedAt,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

func TastingToPublicResponse(t *entity.TastingSession, a *entity.Appointment) PublicTastingResponse {
	return PublicTastingResponse{
		ProposedDate:      t.ProposedDate.Format(utils.DateLayout),
		ProposedTime:      t.ProposedTime,
		Status:            t.Status,
		EventType:         a.EventType,
		EventDate:         a.EventDate.Format(utils.DateLayout),
		ContactName:       a.ContactName,
		AppointmentStatus: a.Status,
	}
}
