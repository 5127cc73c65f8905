package request

type CreateAppointmentRequest struct {
	EventType    string  `json:"event_type" validate:"required,oneof=wedding debut birthday corporate christening other"`
	EventDate    string  `json:"event_date" validate:"required,datestr"`
	EventTime    string  `json:"event_time" validate:"required,timeslot"`
	GuestCount   int     `json:"guest_count" validate:"required,gt=0,max=5000"`
	VenueAddress string  `json:"venue_address" validate:"required,max=500"`
	ContactName  string  `json:"contact_name" validate:"required,max=100"`
	ContactEmail string  `json:"contact_email" validate:"required,email"`
	ContactPhone string  `json:"contact_phone" validate:"required,min=7,max=20"`
	TotalAmount  float64 `json:"total_amount" validate:"gte=0"`
	DownPayment  float64 `json:"down_payment" validate:"gte=0,ltefield=TotalAmount"`

	// Optional tasting proposal. Defaults are derived from the event date.
	TastingDate *string `json:"tasting_date,omitempty" validate:"omitempty,datestr"`
	TastingTime *string `json:"tasting_time,omitempty" validate:"omitempty,timeslot"`
}

type AdminCreateAppointmentRequest struct {
	CreateAppointmentRequest
	UserID     *string `json:"user_id,omitempty" validate:"omitempty,uuid"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status     string  `json:"status" validate:"required"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
}

type ListAppointmentsRequest struct {
	PaginatedRequest
	Status string `json:"status"`
	Date   string `json:"date"`
}
