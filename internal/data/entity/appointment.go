package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeWedding     EventType = "wedding"
	EventTypeDebut       EventType = "debut"
	EventTypeBirthday    EventType = "birthday"
	EventTypeCorporate   EventType = "corporate"
	EventTypeChristening EventType = "christening"
	EventTypeOther       EventType = "other"
)

type BookingSource string

const (
	BookingSourceCustomer BookingSource = "customer"
	BookingSourceAdmin    BookingSource = "admin"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusFullyPaid     PaymentStatus = "fully_paid"
)

type Appointment struct {
	Base
	UserID        *uuid.UUID        `db:"user_id"`
	EventType     EventType         `db:"event_type"`
	EventDate     time.Time         `db:"event_date"`
	EventTime     string            `db:"event_time"`
	GuestCount    int               `db:"guest_count"`
	VenueAddress  string            `db:"venue_address"`
	ContactName   string            `db:"contact_name"`
	ContactEmail  string            `db:"contact_email"`
	ContactPhone  string            `db:"contact_phone"`
	TotalAmount   float64           `db:"total_amount"`
	DownPayment   float64           `db:"down_payment"`
	BookingSource BookingSource     `db:"booking_source"`
	PaymentStatus PaymentStatus     `db:"payment_status"`
	Status        AppointmentStatus `db:"status"`
	AdminNotes    *string           `db:"admin_notes"`
}

// OwnedBy reports whether the appointment belongs to the given customer account.
func (a *Appointment) OwnedBy(userID uuid.UUID) bool {
	return a.UserID != nil && *a.UserID == userID
}

// AppointmentFilter narrows staff listings. Zero values match everything.
type AppointmentFilter struct {
	Status    AppointmentStatus
	EventDate *time.Time
}
