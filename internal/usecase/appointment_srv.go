package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/dto/request"
	"catering-booking/internal/dto/response"
	"catering-booking/pkg/mailer"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentService interface {
	// Customer endpoints
	CreateAppointment(ctx context.Context, identity utils.Identity, req *request.CreateAppointmentRequest, idempotencyKey string) (*response.AppointmentResponse, error)
	ListMyAppointments(ctx context.Context, identity utils.Identity, req *request.PaginatedRequest) (*response.PaginatedResponse[response.AppointmentResponse], error)
	CancelMyAppointment(ctx context.Context, identity utils.Identity, appointmentID string) (*response.AppointmentResponse, error)

	// Owner or staff
	GetAppointment(ctx context.Context, identity utils.Identity, appointmentID string) (*response.AppointmentResponse, error)

	// Staff endpoints
	AdminCreateAppointment(ctx context.Context, identity utils.Identity, req *request.AdminCreateAppointmentRequest, idempotencyKey string) (*response.AppointmentResponse, error)
	ListAppointments(ctx context.Context, identity utils.Identity, req *request.ListAppointmentsRequest) (*response.PaginatedResponse[response.AppointmentResponse], error)
	UpdateStatus(ctx context.Context, identity utils.Identity, appointmentID string, req *request.UpdateStatusRequest) (*response.AppointmentResponse, error)
}

type appointmentService struct {
	repo     *repository.Repository
	notifier NotificationService
	events   EventPublisher
	mail     Mailer
	config   *utils.Config
	log      *zap.Logger
	now      func() time.Time
}

func NewAppointmentService(
	repo *repository.Repository,
	notifier NotificationService,
	events EventPublisher,
	mail Mailer,
	config *utils.Config,
	log *zap.Logger,
) AppointmentService {
	return &appointmentService{
		repo:     repo,
		notifier: notifier,
		events:   events,
		mail:     mail,
		config:   config,
		log:      log.With(zap.String("service", "appointment")),
		now:      time.Now,
	}
}

type newAppointment struct {
	req        *request.CreateAppointmentRequest
	userID     *uuid.UUID
	source     entity.BookingSource
	adminNotes *string
	actor      utils.Identity
}

func (s *appointmentService) CreateAppointment(ctx context.Context, identity utils.Identity, req *request.CreateAppointmentRequest, idempotencyKey string) (*response.AppointmentResponse, error) {
	userID := identity.UserID
	return s.create(ctx, newAppointment{
		req:    req,
		userID: &userID,
		source: entity.BookingSourceCustomer,
		actor:  identity,
	}, idempotencyKey)
}

func (s *appointmentService) AdminCreateAppointment(ctx context.Context, identity utils.Identity, req *request.AdminCreateAppointmentRequest, idempotencyKey string) (*response.AppointmentResponse, error) {
	if !identity.IsStaff() {
		return nil, utils.Forbidden("staff access required")
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	in := newAppointment{
		req:        &req.CreateAppointmentRequest,
		source:     entity.BookingSourceAdmin,
		adminNotes: req.AdminNotes,
		actor:      identity,
	}

	// Bookings taken over the phone may belong to a registered customer.
	if req.UserID != nil {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return nil, utils.BadRequest("invalid user id")
		}
		user, err := s.repo.User.FindByID(ctx, userID)
		if err != nil {
			return nil, utils.Upstream(err, "find user %s", userID)
		}
		if user == nil {
			return nil, utils.NotFound("user not found")
		}
		in.userID = &userID
	}

	return s.create(ctx, in, idempotencyKey)
}

func (s *appointmentService) requiresTasting(eventType entity.EventType) bool {
	for _, t := range s.config.Booking.TastingEventTypes {
		if strings.EqualFold(t, string(eventType)) {
			return true
		}
	}
	return false
}

func (s *appointmentService) create(ctx context.Context, in newAppointment, idempotencyKey string) (*response.AppointmentResponse, error) {
	req := in.req

	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create appointment validation failed", zap.Any("errors", errs))
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	eventDate, err := utils.ParseDate(req.EventDate)
	if err != nil {
		return nil, utils.BadRequest("event_date must be in YYYY-MM-DD format")
	}

	now := s.now()
	if eventDate.Before(utils.Today(now)) {
		return nil, utils.BadRequest("event_date must not be in the past")
	}

	// 2. Idempotency, scoped to the caller
	scopedKey := ""
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		scopedKey = in.actor.UserID.String() + ":" + key

		existing, reserved, err := s.repo.Idempotency.Reserve(ctx, scopedKey)
		switch {
		case err != nil:
			s.log.Warn("Idempotency store unavailable, continuing without it", zap.Error(err))
			scopedKey = ""
		case !reserved && repository.IsPending(existing):
			return nil, utils.Conflict("a request with this Idempotency-Key is still in progress")
		case !reserved:
			return s.replay(ctx, existing)
		}
	}

	// 3. Build the appointment and, when the event type needs one, its tasting session
	status := entity.AppointmentStatusPending
	needsTasting := s.requiresTasting(entity.EventType(req.EventType))
	if needsTasting {
		status = entity.AppointmentStatusPendingTastingConfirmation
	}

	appointment := &entity.Appointment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:        in.userID,
		EventType:     entity.EventType(req.EventType),
		EventDate:     eventDate,
		EventTime:     req.EventTime,
		GuestCount:    req.GuestCount,
		VenueAddress:  strings.TrimSpace(req.VenueAddress),
		ContactName:   strings.TrimSpace(req.ContactName),
		ContactEmail:  strings.TrimSpace(req.ContactEmail),
		ContactPhone:  strings.TrimSpace(req.ContactPhone),
		TotalAmount:   req.TotalAmount,
		DownPayment:   req.DownPayment,
		BookingSource: in.source,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Status:        status,
		AdminNotes:    in.adminNotes,
	}

	var session *entity.TastingSession
	if needsTasting {
		session, err = s.newTastingSession(appointment, req.TastingDate, req.TastingTime, now)
		if err != nil {
			s.release(ctx, scopedKey)
			return nil, err
		}
	}

	// 4. Insert both rows in one transaction. The active slot index rejects double bookings.
	err = withRetry(ctx, s.config.Retry, func(ctx context.Context) error {
		return s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			if err := tx.Appointment.Create(ctx, appointment); err != nil {
				return err
			}
			if session != nil {
				return tx.Tasting.Create(ctx, session)
			}
			return nil
		})
	})
	if err != nil {
		s.release(ctx, scopedKey)
		if errors.Is(err, repository.ErrSlotTaken) {
			s.log.Info("Booking rejected, slot taken",
				zap.String("event_date", req.EventDate),
				zap.String("event_time", req.EventTime))
			return nil, utils.Conflict("the %s slot on %s is already booked", req.EventTime, req.EventDate)
		}
		return nil, utils.Upstream(err, "create appointment")
	}

	if scopedKey != "" {
		if err := s.repo.Idempotency.Complete(ctx, scopedKey, appointment.ID.String()); err != nil {
			s.log.Warn("Failed to store idempotency result", zap.Error(err))
		}
	}

	s.log.Info("Appointment created",
		zap.String("appointment_id", appointment.ID.String()),
		zap.String("status", string(appointment.Status)),
		zap.String("source", string(appointment.BookingSource)))

	// 5. Side effects, best effort
	s.afterCreate(ctx, appointment, session)

	resp := response.AppointmentToResponse(appointment)
	if session != nil {
		tasting := response.TastingToResponse(session)
		resp.Tasting = &tasting
	}
	return &resp, nil
}

func (s *appointmentService) release(ctx context.Context, scopedKey string) {
	if scopedKey == "" {
		return
	}
	if err := s.repo.Idempotency.Release(context.WithoutCancel(ctx), scopedKey); err != nil {
		s.log.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

func (s *appointmentService) replay(ctx context.Context, appointmentID string) (*response.AppointmentResponse, error) {
	id, err := uuid.Parse(appointmentID)
	if err != nil {
		return nil, utils.Upstream(err, "parse stored idempotency result")
	}

	appointment, err := s.repo.Appointment.FindByID(ctx, id)
	if err != nil {
		return nil, utils.Upstream(err, "find appointment %s", id)
	}
	if appointment == nil {
		return nil, utils.NotFound("appointment not found")
	}

	s.log.Info("Replayed idempotent booking", zap.String("appointment_id", id.String()))
	return s.details(ctx, appointment)
}

// newTastingSession proposes the tasting lead days before the event, never
// earlier than tomorrow, unless the request names a date.
func (s *appointmentService) newTastingSession(a *entity.Appointment, tastingDate, tastingTime *string, now time.Time) (*entity.TastingSession, error) {
	tomorrow := utils.Today(now).AddDate(0, 0, 1)

	proposedDate := a.EventDate.AddDate(0, 0, -s.config.Booking.TastingLeadDays)
	if proposedDate.Before(tomorrow) {
		proposedDate = tomorrow
	}
	if tastingDate != nil {
		d, err := utils.ParseDate(*tastingDate)
		if err != nil {
			return nil, utils.BadRequest("tasting_date must be in YYYY-MM-DD format")
		}
		if d.Before(tomorrow) {
			return nil, utils.BadRequest("tasting_date must be after today")
		}
		proposedDate = d
	}

	proposedTime := s.config.Booking.DefaultTastingTime
	if !utils.IsValidTimeSlot(proposedTime) {
		proposedTime = "10:00 AM"
	}
	if tastingTime != nil {
		proposedTime = *tastingTime
	}

	token, err := utils.GenerateCapabilityToken()
	if err != nil {
		return nil, utils.Upstream(err, "generate tasting token")
	}

	return &entity.TastingSession{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		AppointmentID: a.ID,
		Token:         token,
		ProposedDate:  proposedDate,
		ProposedTime:  proposedTime,
		Status:        entity.TastingStatusPending,
	}, nil
}

func (s *appointmentService) afterCreate(ctx context.Context, a *entity.Appointment, session *entity.TastingSession) {
	eventDate := a.EventDate.Format(utils.DateLayout)

	s.notifier.NotifyStaff(ctx, NotificationInput{
		Title:         "New booking",
		Message:       fmt.Sprintf("%s booked a %s on %s at %s for %d guests.", a.ContactName, a.EventType, eventDate, a.EventTime, a.GuestCount),
		Type:          entity.NotificationAppointmentCreated,
		AppointmentID: &a.ID,
	})

	if a.UserID != nil {
		message := fmt.Sprintf("We received your %s booking on %s at %s.", a.EventType, eventDate, a.EventTime)
		if session != nil {
			message += fmt.Sprintf(" A food tasting invitation was sent to %s.", a.ContactEmail)
		}
		s.notifier.Notify(ctx, *a.UserID, NotificationInput{
			Title:         "Booking received",
			Message:       message,
			Type:          entity.NotificationAppointmentCreated,
			AppointmentID: &a.ID,
		})
	}

	event := Event{
		Type:          EventAppointmentCreated,
		AppointmentID: a.ID.String(),
		Status:        string(a.Status),
	}
	if session != nil {
		event.TastingID = session.ID.String()
	}
	publishEvent(ctx, s.events, s.log, event)

	if session != nil {
		go s.sendTastingInvitation(*a, *session)
	}
}

func (s *appointmentService) sendTastingInvitation(a entity.Appointment, session entity.TastingSession) {
	if s.mail == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token := url.QueryEscape(session.Token)
	body, err := mailer.RenderTastingInvitation(mailer.TastingInvitation{
		ContactName:   a.ContactName,
		EventType:     string(a.EventType),
		EventDate:     a.EventDate.Format(utils.DateLayout),
		TastingDate:   session.ProposedDate.Format(utils.DateLayout),
		TastingTime:   session.ProposedTime,
		ConfirmURL:    s.config.App.BaseURL + "/api/tasting/confirm?token=" + token + "&action=confirm",
		RescheduleURL: s.config.App.FrontendURL + "/tasting/reschedule?token=" + token,
	})
	if err != nil {
		s.log.Error("Failed to render tasting invitation", zap.Error(err), zap.String("appointment_id", a.ID.String()))
		return
	}

	if err := s.mail.Send(ctx, a.ContactEmail, "Your food tasting invitation", body); err != nil {
		s.log.Warn("Failed to send tasting invitation",
			zap.Error(err),
			zap.String("appointment_id", a.ID.String()))
		return
	}

	s.log.Info("Tasting invitation sent", zap.String("appointment_id", a.ID.String()))
}

// details loads the user snapshot and tasting session for a.
func (s *appointmentService) details(ctx context.Context, a *entity.Appointment) (*response.AppointmentResponse, error) {
	resp := response.AppointmentToResponse(a)

	if a.UserID != nil {
		user, err := s.repo.User.FindByID(ctx, *a.UserID)
		if err != nil {
			return nil, utils.Upstream(err, "find user %s", a.UserID)
		}
		resp.User = response.UserToSummary(user)
	}

	session, err := s.repo.Tasting.FindByAppointmentID(ctx, a.ID)
	if err != nil {
		return nil, utils.Upstream(err, "find tasting for appointment %s", a.ID)
	}
	if session != nil {
		tasting := response.TastingToResponse(session)
		resp.Tasting = &tasting
	}

	return &resp, nil
}

func parseAppointmentID(appointmentID string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(appointmentID))
	if err != nil {
		return uuid.Nil, utils.BadRequest("invalid appointment id")
	}
	return id, nil
}

func (s *appointmentService) GetAppointment(ctx context.Context, identity utils.Identity, appointmentID string) (*response.AppointmentResponse, error) {
	id, err := parseAppointmentID(appointmentID)
	if err != nil {
		return nil, err
	}

	appointment, err := s.repo.Appointment.FindByID(ctx, id)
	if err != nil {
		return nil, utils.Upstream(err, "find appointment %s", id)
	}
	if appointment == nil {
		return nil, utils.NotFound("appointment not found")
	}

	if !identity.IsStaff() && !appointment.OwnedBy(identity.UserID) {
		return nil, utils.Forbidden("you do not have access to this appointment")
	}

	return s.details(ctx, appointment)
}

func toAppointmentResponses(appointments []*entity.Appointment) []response.AppointmentResponse {
	items := make([]response.AppointmentResponse, len(appointments))
	for i, a := range appointments {
		items[i] = response.AppointmentToResponse(a)
	}
	return items
}

func (s *appointmentService) ListMyAppointments(ctx context.Context, identity utils.Identity, req *request.PaginatedRequest) (*response.PaginatedResponse[response.AppointmentResponse], error) {
	appointments, err := s.repo.Appointment.FindByUserID(ctx, identity.UserID, req.Limit(), req.Offset())
	if err != nil {
		return nil, utils.Upstream(err, "list appointments for user %s", identity.UserID)
	}

	total, err := s.repo.Appointment.CountByUserID(ctx, identity.UserID)
	if err != nil {
		return nil, utils.Upstream(err, "count appointments for user %s", identity.UserID)
	}

	return response.NewPaginatedResponse(toAppointmentResponses(appointments), req.CurrentPage(), req.Limit(), total), nil
}

func (s *appointmentService) ListAppointments(ctx context.Context, identity utils.Identity, req *request.ListAppointmentsRequest) (*response.PaginatedResponse[response.AppointmentResponse], error) {
	if !identity.IsStaff() {
		return nil, utils.Forbidden("staff access required")
	}

	var filter entity.AppointmentFilter
	if req.Status != "" {
		filter.Status = entity.AppointmentStatus(req.Status)
		if !filter.Status.IsValid() {
			return nil, utils.InvalidStatus("invalid status %q", req.Status)
		}
	}
	if req.Date != "" {
		date, err := utils.ParseDate(req.Date)
		if err != nil {
			return nil, utils.BadRequest("date must be in YYYY-MM-DD format")
		}
		filter.EventDate = &date
	}

	appointments, err := s.repo.Appointment.FindAll(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		return nil, utils.Upstream(err, "list appointments")
	}

	total, err := s.repo.Appointment.Count(ctx, filter)
	if err != nil {
		return nil, utils.Upstream(err, "count appointments")
	}

	return response.NewPaginatedResponse(toAppointmentResponses(appointments), req.CurrentPage(), req.Limit(), total), nil
}

type statusChange struct {
	appointment    *entity.Appointment
	previous       entity.AppointmentStatus
	session        *entity.TastingSession
	sessionCreated bool
}

func (c statusChange) changed() bool {
	return c.appointment.Status != c.previous
}

// changeStatus moves an appointment through the transition table and keeps
// its tasting session in step, all in one transaction. guard runs against the
// locked row before anything is written.
func (s *appointmentService) changeStatus(
	ctx context.Context,
	id uuid.UUID,
	target entity.AppointmentStatus,
	notes *string,
	guard func(a *entity.Appointment) error,
) (*statusChange, error) {
	var result *statusChange

	err := withRetry(ctx, s.config.Retry, func(ctx context.Context) error {
		return s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			a, err := tx.Appointment.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if a == nil {
				return utils.NotFound("appointment not found")
			}
			if guard != nil {
				if err := guard(a); err != nil {
					return err
				}
			}

			from := a.Status
			if target != from && !from.CanTransitionTo(target) {
				return utils.Conflict("cannot change status from %s to %s", from, target)
			}

			if err := tx.Appointment.UpdateStatus(ctx, id, from, target, notes); err != nil {
				return err
			}

			change := &statusChange{previous: from}
			if target != from {
				if change.session, change.sessionCreated, err = s.syncTasting(ctx, tx, a, target); err != nil {
					return err
				}
			}

			if change.appointment, err = tx.Appointment.FindByID(ctx, id); err != nil {
				return err
			}
			result = change
			return nil
		})
	})
	if err != nil {
		return nil, translateStoreError(err, "update appointment %s status", id)
	}

	return result, nil
}

// syncTasting mirrors a tasting workflow status onto the session row.
func (s *appointmentService) syncTasting(ctx context.Context, tx *repository.Repository, a *entity.Appointment, target entity.AppointmentStatus) (*entity.TastingSession, bool, error) {
	want, ok := entity.TastingStatusFor(target)
	if !ok {
		return nil, false, nil
	}

	session, err := tx.Tasting.FindByAppointmentID(ctx, a.ID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	if session == nil {
		if target != entity.AppointmentStatusPendingTastingConfirmation {
			return nil, false, utils.Conflict("appointment has no tasting session")
		}
		session, err = s.newTastingSession(a, nil, nil, now)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Tasting.Create(ctx, session); err != nil {
			return nil, false, err
		}
		return session, true, nil
	}

	if session.Status == want {
		return session, false, nil
	}

	session.Status = want
	session.UpdatedAt = now
	switch want {
	case entity.TastingStatusConfirmed:
		session.ConfirmedAt = &now
	case entity.TastingStatusCompleted:
		session.CompletedAt = &now
	}
	if err := tx.Tasting.Update(ctx, session); err != nil {
		return nil, false, err
	}
	return session, false, nil
}

func (s *appointmentService) UpdateStatus(ctx context.Context, identity utils.Identity, appointmentID string, req *request.UpdateStatusRequest) (*response.AppointmentResponse, error) {
	if !identity.IsAdmin() {
		return nil, utils.Forbidden("admin access required")
	}

	// 1. The target must be one of the known statuses
	target := entity.AppointmentStatus(strings.TrimSpace(req.Status))
	if !target.IsValid() {
		s.log.Warn("Rejected unknown appointment status", zap.String("status", req.Status))
		return nil, utils.InvalidStatus("invalid status %q", req.Status)
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := parseAppointmentID(appointmentID)
	if err != nil {
		return nil, err
	}

	// 2. Apply through the transition table
	change, err := s.changeStatus(ctx, id, target, req.AdminNotes, nil)
	if err != nil {
		return nil, err
	}

	a := change.appointment
	if change.changed() {
		s.log.Info("Appointment status updated",
			zap.String("appointment_id", a.ID.String()),
			zap.String("from", string(change.previous)),
			zap.String("to", string(a.Status)),
			zap.String("actor_id", actorID(identity)))

		s.afterStatusChange(ctx, identity, change)
	}

	return s.details(ctx, a)
}

func (s *appointmentService) afterStatusChange(ctx context.Context, identity utils.Identity, change *statusChange) {
	a := change.appointment

	if a.UserID != nil {
		s.notifier.Notify(ctx, *a.UserID, NotificationInput{
			Title: "Booking status updated",
			Message: fmt.Sprintf("Your %s booking on %s is now %s.",
				a.EventType, a.EventDate.Format(utils.DateLayout), a.Status),
			Type:          entity.NotificationAppointmentStatusChanged,
			AppointmentID: &a.ID,
		})
	}

	publishEvent(ctx, s.events, s.log, Event{
		Type:           EventAppointmentStatusChanged,
		AppointmentID:  a.ID.String(),
		Status:         string(a.Status),
		PreviousStatus: string(change.previous),
		ActorID:        actorID(identity),
	})

	if change.sessionCreated && change.session != nil {
		go s.sendTastingInvitation(*a, *change.session)
	}
}

func (s *appointmentService) CancelMyAppointment(ctx context.Context, identity utils.Identity, appointmentID string) (*response.AppointmentResponse, error) {
	id, err := parseAppointmentID(appointmentID)
	if err != nil {
		return nil, err
	}

	change, err := s.changeStatus(ctx, id, entity.AppointmentStatusCancelled, nil, func(a *entity.Appointment) error {
		if !a.OwnedBy(identity.UserID) {
			return utils.Forbidden("you do not have access to this appointment")
		}
		if a.Status == entity.AppointmentStatusCancelled {
			return utils.Conflict("appointment is already cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a := change.appointment
	s.log.Info("Appointment cancelled by customer",
		zap.String("appointment_id", a.ID.String()),
		zap.String("from", string(change.previous)))

	s.notifier.NotifyStaff(ctx, NotificationInput{
		Title: "Booking cancelled",
		Message: fmt.Sprintf("%s cancelled the %s on %s at %s.",
			a.ContactName, a.EventType, a.EventDate.Format(utils.DateLayout), a.EventTime),
		Type:          entity.NotificationAppointmentStatusChanged,
		AppointmentID: &a.ID,
	})

	publishEvent(ctx, s.events, s.log, Event{
		Type:           EventAppointmentStatusChanged,
		AppointmentID:  a.ID.String(),
		Status:         string(a.Status),
		PreviousStatus: string(change.previous),
		ActorID:        actorID(identity),
	})

	return s.details(ctx, a)
}
