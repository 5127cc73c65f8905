package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/dto/request"
	"catering-booking/internal/dto/response"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tokens are capabilities. Nothing in this file logs or returns one.

const reconcileBatchSize = 100

type TastingService interface {
	// Public endpoints, authenticated by the capability token
	Confirm(ctx context.Context, req *request.ConfirmTastingRequest) (*response.PublicTastingResponse, error)
	RequestReschedule(ctx context.Context, req *request.RescheduleTastingRequest) (*response.PublicTastingResponse, error)
	GetByToken(ctx context.Context, token string) (*response.PublicTastingResponse, error)

	// Staff endpoints
	Schedule(ctx context.Context, identity utils.Identity, sessionID string, req *request.ScheduleTastingRequest) (*response.TastingResponse, error)
	Complete(ctx context.Context, identity utils.Identity, sessionID string) (*response.TastingResponse, error)
	List(ctx context.Context, identity utils.Identity, req *request.ListTastingsRequest) (*response.PaginatedResponse[response.TastingResponse], error)

	// Reconcile repairs appointments whose status disagrees with their
	// tasting session. Returns the number of appointments repaired.
	Reconcile(ctx context.Context) (int, error)
}

type tastingService struct {
	repo     *repository.Repository
	notifier NotificationService
	events   EventPublisher
	config   *utils.Config
	log      *zap.Logger
	now      func() time.Time
}

func NewTastingService(
	repo *repository.Repository,
	notifier NotificationService,
	events EventPublisher,
	config *utils.Config,
	log *zap.Logger,
) TastingService {
	return &tastingService{
		repo:     repo,
		notifier: notifier,
		events:   events,
		config:   config,
		log:      log.With(zap.String("service", "tasting")),
		now:      time.Now,
	}
}

// tastingUpdate is the outcome of one session + appointment cascade.
type tastingUpdate struct {
	session     *entity.TastingSession
	appointment *entity.Appointment
	previous    entity.AppointmentStatus
	changed     bool
}

type sessionLookup func(ctx context.Context, tx *repository.Repository) (*entity.TastingSession, error)

func byToken(token string) sessionLookup {
	return func(ctx context.Context, tx *repository.Repository) (*entity.TastingSession, error) {
		return tx.Tasting.FindByTokenForUpdate(ctx, token)
	}
}

func byID(id uuid.UUID) sessionLookup {
	return func(ctx context.Context, tx *repository.Repository) (*entity.TastingSession, error) {
		return tx.Tasting.FindByIDForUpdate(ctx, id)
	}
}

// cascade locks the session and its appointment, lets mutate change the
// session, then moves the appointment to target. Both writes commit together
// or not at all. mutate returning false means the session is already in the
// requested state and nothing is written.
func (s *tastingService) cascade(
	ctx context.Context,
	lookup sessionLookup,
	target entity.AppointmentStatus,
	mutate func(session *entity.TastingSession, now time.Time) (bool, error),
) (*tastingUpdate, error) {
	var result *tastingUpdate

	err := withRetry(ctx, s.config.Retry, func(ctx context.Context) error {
		return s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			session, err := lookup(ctx, tx)
			if err != nil {
				return err
			}
			if session == nil {
				return utils.NotFound("tasting session not found")
			}

			appointment, err := tx.Appointment.FindByIDForUpdate(ctx, session.AppointmentID)
			if err != nil {
				return err
			}
			if appointment == nil {
				return utils.NotFound("appointment not found")
			}

			update := &tastingUpdate{session: session, appointment: appointment, previous: appointment.Status}

			now := s.now()
			write, err := mutate(session, now)
			if err != nil {
				return err
			}
			if !write {
				result = update
				return nil
			}

			from := appointment.Status
			if from != target && !from.CanTransitionTo(target) {
				return utils.Conflict("appointment is %s and cannot move to %s", from, target)
			}

			session.UpdatedAt = now
			if err := tx.Tasting.Update(ctx, session); err != nil {
				return err
			}
			if err := tx.Appointment.UpdateStatus(ctx, appointment.ID, from, target, nil); err != nil {
				return err
			}

			appointment.Status = target
			appointment.UpdatedAt = now
			update.changed = true
			result = update
			return nil
		})
	})
	if err != nil {
		return nil, translateStoreError(err, "update tasting session")
	}

	return result, nil
}

func (s *tastingService) Confirm(ctx context.Context, req *request.ConfirmTastingRequest) (*response.PublicTastingResponse, error) {
	req.Token = strings.TrimSpace(req.Token)
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	if req.Action == "" {
		req.Action = "confirm"
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	update, err := s.cascade(ctx, byToken(req.Token), entity.AppointmentStatusTastingConfirmed,
		func(session *entity.TastingSession, now time.Time) (bool, error) {
			switch session.Status {
			case entity.TastingStatusConfirmed:
				return false, nil
			case entity.TastingStatusCompleted:
				return false, utils.Conflict("tasting has already taken place")
			}
			session.Status = entity.TastingStatusConfirmed
			session.ConfirmedAt = &now
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	if update.changed {
		a := update.appointment
		s.log.Info("Tasting confirmed by customer",
			zap.String("tasting_id", update.session.ID.String()),
			zap.String("appointment_id", a.ID.String()))

		when := fmt.Sprintf("%s at %s", update.session.ProposedDate.Format(utils.DateLayout), update.session.ProposedTime)
		s.notifier.NotifyStaff(ctx, NotificationInput{
			Title:         "Tasting confirmed",
			Message:       fmt.Sprintf("%s confirmed the food tasting on %s.", a.ContactName, when),
			Type:          entity.NotificationTastingConfirmed,
			AppointmentID: &a.ID,
		})
		if a.UserID != nil {
			s.notifier.Notify(ctx, *a.UserID, NotificationInput{
				Title:         "Tasting confirmed",
				Message:       fmt.Sprintf("See you at the food tasting on %s.", when),
				Type:          entity.NotificationTastingConfirmed,
				AppointmentID: &a.ID,
			})
		}
		s.publish(ctx, EventTastingConfirmed, update, "")
	}

	resp := response.TastingToPublicResponse(update.session, update.appointment)
	return &resp, nil
}

func (s *tastingService) RequestReschedule(ctx context.Context, req *request.RescheduleTastingRequest) (*response.PublicTastingResponse, error) {
	req.Token = strings.TrimSpace(req.Token)

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	preferred, err := utils.ParseDate(req.PreferredDate)
	if err != nil {
		return nil, utils.BadRequest("preferredDate must be in YYYY-MM-DD format")
	}
	if preferred.Before(utils.Today(s.now())) {
		return nil, utils.BadRequest("preferredDate must not be in the past")
	}
	if (req.AlternativeDate == nil) != (req.AlternativeTime == nil) {
		return nil, utils.BadRequest("alternativeDate and alternativeTime must be given together")
	}

	update, err := s.cascade(ctx, byToken(req.Token), entity.AppointmentStatusTastingRescheduleRequested,
		func(session *entity.TastingSession, now time.Time) (bool, error) {
			if session.Status == entity.TastingStatusCompleted {
				return false, utils.Conflict("tasting has already taken place")
			}
			session.Status = entity.TastingStatusRescheduleRequested
			session.ReschedulePreferences = &entity.ReschedulePreferences{
				PreferredDate:   preferred.Format(utils.DateLayout),
				PreferredTime:   req.PreferredTime,
				AlternativeDate: req.AlternativeDate,
				AlternativeTime: req.AlternativeTime,
				Notes:           req.Notes,
				RequestedAt:     now.UTC(),
			}
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	a := update.appointment
	s.log.Info("Tasting reschedule requested",
		zap.String("tasting_id", update.session.ID.String()),
		zap.String("appointment_id", a.ID.String()))

	s.notifier.NotifyStaff(ctx, NotificationInput{
		Title: "Tasting reschedule requested",
		Message: fmt.Sprintf("%s asked to move the food tasting to %s at %s.",
			a.ContactName, req.PreferredDate, req.PreferredTime),
		Type:          entity.NotificationTastingRescheduleRequested,
		AppointmentID: &a.ID,
	})
	s.publish(ctx, EventTastingRescheduleRequested, update, "")

	resp := response.TastingToPublicResponse(update.session, a)
	return &resp, nil
}

func (s *tastingService) GetByToken(ctx context.Context, token string) (*response.PublicTastingResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, utils.BadRequest("token is required")
	}

	session, err := s.repo.Tasting.FindByToken(ctx, token)
	if err != nil {
		return nil, utils.Upstream(err, "find tasting session")
	}
	if session == nil {
		return nil, utils.NotFound("tasting session not found")
	}

	appointment, err := s.repo.Appointment.FindByID(ctx, session.AppointmentID)
	if err != nil {
		return nil, utils.Upstream(err, "find appointment %s", session.AppointmentID)
	}
	if appointment == nil {
		return nil, utils.NotFound("appointment not found")
	}

	resp := response.TastingToPublicResponse(session, appointment)
	return &resp, nil
}

func parseTastingID(sessionID string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(sessionID))
	if err != nil {
		return uuid.Nil, utils.BadRequest("invalid tasting session id")
	}
	return id, nil
}

func (s *tastingService) Schedule(ctx context.Context, identity utils.Identity, sessionID string, req *request.ScheduleTastingRequest) (*response.TastingResponse, error) {
	if !identity.IsStaff() {
		return nil, utils.Forbidden("staff access required")
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := parseTastingID(sessionID)
	if err != nil {
		return nil, err
	}

	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, utils.BadRequest("date must be in YYYY-MM-DD format")
	}
	if date.Before(utils.Today(s.now())) {
		return nil, utils.BadRequest("date must not be in the past")
	}

	update, err := s.cascade(ctx, byID(id), entity.AppointmentStatusTastingConfirmed,
		func(session *entity.TastingSession, now time.Time) (bool, error) {
			if session.Status == entity.TastingStatusCompleted {
				return false, utils.Conflict("tasting has already taken place")
			}
			session.ProposedDate = date
			session.ProposedTime = req.Time
			session.Status = entity.TastingStatusConfirmed
			session.ConfirmedAt = &now
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	a := update.appointment
	s.log.Info("Tasting scheduled",
		zap.String("tasting_id", update.session.ID.String()),
		zap.String("appointment_id", a.ID.String()),
		zap.String("actor_id", actorID(identity)))

	if a.UserID != nil {
		s.notifier.Notify(ctx, *a.UserID, NotificationInput{
			Title:         "Tasting scheduled",
			Message:       fmt.Sprintf("Your food tasting is scheduled on %s at %s.", req.Date, req.Time),
			Type:          entity.NotificationTastingScheduled,
			AppointmentID: &a.ID,
		})
	}
	s.publish(ctx, EventTastingScheduled, update, actorID(identity))

	resp := response.TastingToResponse(update.session)
	return &resp, nil
}

func (s *tastingService) Complete(ctx context.Context, identity utils.Identity, sessionID string) (*response.TastingResponse, error) {
	if !identity.IsStaff() {
		return nil, utils.Forbidden("staff access required")
	}

	id, err := parseTastingID(sessionID)
	if err != nil {
		return nil, err
	}

	update, err := s.cascade(ctx, byID(id), entity.AppointmentStatusTastingCompleted,
		func(session *entity.TastingSession, now time.Time) (bool, error) {
			switch session.Status {
			case entity.TastingStatusCompleted:
				return false, nil
			case entity.TastingStatusConfirmed:
			default:
				return false, utils.Conflict("only a confirmed tasting can be completed")
			}
			session.Status = entity.TastingStatusCompleted
			session.CompletedAt = &now
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	if update.changed {
		a := update.appointment
		s.log.Info("Tasting completed",
			zap.String("tasting_id", update.session.ID.String()),
			zap.String("appointment_id", a.ID.String()),
			zap.String("actor_id", actorID(identity)))

		if a.UserID != nil {
			s.notifier.Notify(ctx, *a.UserID, NotificationInput{
				Title:         "Thank you for attending the tasting",
				Message:       fmt.Sprintf("Your %s menu is being finalised. We will confirm the booking shortly.", a.EventType),
				Type:          entity.NotificationTastingCompleted,
				AppointmentID: &a.ID,
			})
		}
		s.publish(ctx, EventTastingCompleted, update, actorID(identity))
	}

	resp := response.TastingToResponse(update.session)
	return &resp, nil
}

func (s *tastingService) List(ctx context.Context, identity utils.Identity, req *request.ListTastingsRequest) (*response.PaginatedResponse[response.TastingResponse], error) {
	if !identity.IsStaff() {
		return nil, utils.Forbidden("staff access required")
	}

	status := entity.TastingStatus(req.Status)
	if status != "" && !status.IsValid() {
		return nil, utils.InvalidStatus("invalid tasting status %q", req.Status)
	}

	sessions, err := s.repo.Tasting.FindAll(ctx, status, req.Limit(), req.Offset())
	if err != nil {
		return nil, utils.Upstream(err, "list tasting sessions")
	}

	total, err := s.repo.Tasting.Count(ctx, status)
	if err != nil {
		return nil, utils.Upstream(err, "count tasting sessions")
	}

	items := make([]response.TastingResponse, len(sessions))
	for i, session := range sessions {
		items[i] = response.TastingToResponse(session)
	}

	return response.NewPaginatedResponse(items, req.CurrentPage(), req.Limit(), total), nil
}

func (s *tastingService) Reconcile(ctx context.Context) (int, error) {
	repaired := 0
	after := uuid.Nil

	for {
		pairs, err := s.repo.Tasting.FindMismatchedPairs(ctx, after, reconcileBatchSize)
		if err != nil {
			return repaired, utils.Upstream(err, "find mismatched tasting pairs")
		}

		for _, pair := range pairs {
			if ctx.Err() != nil {
				return repaired, ctx.Err()
			}

			fixed, err := s.repair(ctx, pair)
			if err != nil {
				s.log.Warn("Failed to reconcile tasting",
					zap.Error(err),
					zap.String("tasting_id", pair.SessionID.String()),
					zap.String("appointment_id", pair.AppointmentID.String()))
				continue
			}
			if fixed {
				repaired++
			}
		}

		if len(pairs) < reconcileBatchSize {
			break
		}
		after = pairs[len(pairs)-1].SessionID
	}

	if repaired > 0 {
		s.log.Info("Reconciled tasting sessions", zap.Int("repaired", repaired))
	}
	return repaired, nil
}

// repair re-reads the pair under lock and applies the status the session
// implies, when the transition table allows it.
func (s *tastingService) repair(ctx context.Context, pair entity.TastingPair) (bool, error) {
	fixed := false

	err := s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		appointment, err := tx.Appointment.FindByIDForUpdate(ctx, pair.AppointmentID)
		if err != nil || appointment == nil {
			return err
		}
		session, err := tx.Tasting.FindByIDForUpdate(ctx, pair.SessionID)
		if err != nil || session == nil {
			return err
		}

		want := session.Status.AppointmentStatus()
		if appointment.Status == want {
			return nil
		}
		if !appointment.Status.CanTransitionTo(want) {
			s.log.Warn("Tasting mismatch needs manual review",
				zap.String("appointment_id", appointment.ID.String()),
				zap.String("appointment_status", string(appointment.Status)),
				zap.String("tasting_status", string(session.Status)))
			return nil
		}

		if err := tx.Appointment.UpdateStatus(ctx, appointment.ID, appointment.Status, want, nil); err != nil {
			return err
		}

		s.log.Info("Appointment status repaired from tasting session",
			zap.String("appointment_id", appointment.ID.String()),
			zap.String("from", string(appointment.Status)),
			zap.String("to", string(want)))
		fixed = true
		return nil
	})

	return fixed, err
}

func (s *tastingService) publish(ctx context.Context, eventType string, update *tastingUpdate, actor string) {
	publishEvent(ctx, s.events, s.log, Event{
		Type:           eventType,
		AppointmentID:  update.appointment.ID.String(),
		Status:         string(update.appointment.Status),
		PreviousStatus: string(update.previous),
		TastingID:      update.session.ID.String(),
		ActorID:        actor,
	})
}
