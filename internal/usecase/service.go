package usecase

import (
	"context"
	"errors"
	"time"

	"catering-booking/internal/data/repository"
	"catering-booking/pkg/database"
	"catering-booking/pkg/utils"

	"go.uber.org/zap"
)

// EventPublisher sends domain events to the message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// Mailer delivers HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Service struct {
	Auth         AuthService
	Appointment  AppointmentService
	Availability AvailabilityService
	Tasting      TastingService
	Payment      PaymentService
	Notification NotificationService
}

func NewService(
	repo *repository.Repository,
	events EventPublisher,
	mail Mailer,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	notification := NewNotificationService(repo.Notification, repo.User, log)

	return &Service{
		Auth:         NewAuthService(repo, config, log),
		Appointment:  NewAppointmentService(repo, notification, events, mail, config, log),
		Availability: NewAvailabilityService(repo.Appointment, log),
		Tasting:      NewTastingService(repo, notification, events, config, log),
		Payment:      NewPaymentService(repo, notification, events, config, log),
		Notification: notification,
	}
}

// Routing keys of the events published to the topic exchange.
const (
	EventAppointmentCreated         = "appointment.created"
	EventAppointmentStatusChanged   = "appointment.status_changed"
	EventTastingConfirmed           = "tasting.confirmed"
	EventTastingRescheduleRequested = "tasting.reschedule_requested"
	EventTastingScheduled           = "tasting.scheduled"
	EventTastingCompleted           = "tasting.completed"
	EventPaymentSubmitted           = "payment.submitted"
	EventPaymentVerified            = "payment.verified"
	EventPaymentRejected            = "payment.rejected"
)

// Event is the body of every published domain event.
type Event struct {
	Type           string    `json:"type"`
	AppointmentID  string    `json:"appointment_id"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TastingID      string    `json:"tasting_id,omitempty"`
	PaymentID      string    `json:"payment_id,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// publishEvent never fails the caller. The committed state is authoritative.
func publishEvent(ctx context.Context, events EventPublisher, log *zap.Logger, event Event) {
	if events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := events.PublishJSON(context.WithoutCancel(ctx), event.Type, event); err != nil {
		log.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("event", event.Type),
			zap.String("appointment_id", event.AppointmentID),
		)
	}
}

// withRetry runs fn again on transient store errors.
func withRetry(ctx context.Context, cfg utils.RetryConfig, fn func(ctx context.Context) error) error {
	return utils.Retry(ctx, cfg.Attempts, cfg.BaseDelay, database.IsTransient, fn)
}

func actorID(identity utils.Identity) string {
	return identity.UserID.String()
}

// translateStoreError keeps AppErrors, maps repository conflicts and wraps
// everything else as an upstream failure.
func translateStoreError(err error, format string, args ...any) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrStatusChanged):
		return utils.Conflict("appointment was modified by another request, reload and try again")
	case errors.Is(err, repository.ErrSlotTaken):
		return utils.Conflict("time slot is already booked")
	default:
		return utils.Upstream(err, format, args...)
	}
}
