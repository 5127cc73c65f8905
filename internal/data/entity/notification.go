package entity

import "github.com/google/uuid"

type NotificationAudience string

const (
	AudienceCustomer NotificationAudience = "customer"
	AudienceStaff    NotificationAudience = "staff"
)

type NotificationType string

const (
	NotificationAppointmentCreated         NotificationType = "appointment_created"
	NotificationAppointmentStatusChanged   NotificationType = "appointment_status_changed"
	NotificationTastingConfirmed           NotificationType = "tasting_confirmed"
	NotificationTastingRescheduleRequested NotificationType = "tasting_reschedule_requested"
	NotificationTastingScheduled           NotificationType = "tasting_scheduled"
	NotificationTastingCompleted           NotificationType = "tasting_completed"
	NotificationPaymentSubmitted           NotificationType = "payment_submitted"
	NotificationPaymentVerified            NotificationType = "payment_verified"
	NotificationPaymentRejected            NotificationType = "payment_rejected"
)

type Notification struct {
	BaseSimple
	RecipientID          uuid.UUID            `db:"recipient_id"`
	Audience             NotificationAudience `db:"audience"`
	Title                string               `db:"title"`
	Message              string               `db:"message"`
	Type                 NotificationType     `db:"type"`
	IsRead               bool                 `db:"is_read"`
	AppointmentID        *uuid.UUID           `db:"appointment_id"`
	PaymentTransactionID *uuid.UUID           `db:"payment_transaction_id"`
}
