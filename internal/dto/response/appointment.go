package response

import (
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/pkg/utils"
)

// UserSummary is the account snapshot attached to an appointment.
type UserSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type AppointmentResponse struct {
	ID            string                   `json:"id"`
	UserID        *string                  `json:"user_id,omitempty"`
	EventType     entity.EventType         `json:"event_type"`
	EventDate     string                   `json:"event_date"`
	EventTime     string                   `json:"event_time"`
	EventEndTime  string                   `json:"event_end_time,omitempty"`
	GuestCount    int                      `json:"guest_count"`
	VenueAddress  string                   `json:"venue_address"`
	ContactName   string                   `json:"contact_name"`
	ContactEmail  string                   `json:"contact_email"`
	ContactPhone  string                   `json:"contact_phone"`
	TotalAmount   float64                  `json:"total_amount"`
	DownPayment   float64                  `json:"down_payment"`
	BookingSource entity.BookingSource     `json:"booking_source"`
	PaymentStatus entity.PaymentStatus     `json:"payment_status"`
	Status        entity.AppointmentStatus `json:"status"`
	AdminNotes    *string                  `json:"admin_notes,omitempty"`
	User          *UserSummary             `json:"user,omitempty"`
	Tasting       *TastingResponse         `json:"tasting,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func AppointmentToResponse(a *entity.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:            a.ID.String(),
		EventType:     a.EventType,
		EventDate:     a.EventDate.Format(utils.DateLayout),
		EventTime:     a.EventTime,
		GuestCount:    a.GuestCount,
		VenueAddress:  a.VenueAddress,
		ContactName:   a.ContactName,
		ContactEmail:  a.ContactEmail,
		ContactPhone:  a.ContactPhone,
		TotalAmount:   a.TotalAmount,
		DownPayment:   a.DownPayment,
		BookingSource: a.BookingSource,
		PaymentStatus: a.PaymentStatus,
		Status:        a.Status,
		AdminNotes:    a.AdminNotes,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.UserID != nil {
		id := a.UserID.String()
		resp.UserID = &id
	}
	if end, _, err := utils.ServiceWindowEnd(a.EventTime); err == nil {
		resp.EventEndTime = end
	}
	return resp
}

func UserToSummary(user *entity.User) *UserSummary {
	if user == nil {
		return nil
	}
	return &UserSummary{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}
}
