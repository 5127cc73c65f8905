package usecase

import (
	"context"
	"errors"
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

type PaymentService interface {
	// Customer endpoints
	Submit(ctx context.Context, identity utils.Identity, appointmentID string, req *request.CreatePaymentRequest) (*response.PaymentResponse, error)
	ListForAppointment(ctx context.Context, identity utils.Identity, appointmentID string) ([]response.PaymentResponse, error)

	// Staff endpoints
	Verify(ctx context.Context, identity utils.Identity, paymentID string, req *request.VerifyPaymentRequest) (*response.PaymentVerificationResponse, error)
	List(ctx context.Context, identity utils.Identity, req *request.ListPaymentsRequest) (*response.PaginatedResponse[response.PaymentResponse], error)
}

type paymentService struct {
	repo     *repository.Repository
	notifier NotificationService
	events   EventPublisher
	config   *utils.Config
	log      *zap.Logger
}

func NewPaymentService(
	repo *repository.Repository,
	notifier NotificationService,
	events EventPublisher,
	config *utils.Config,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:     repo,
		notifier: notifier,
		events:   events,
		config:   config,
		log:      log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) Submit(ctx context.Context, identity utils.Identity, appointmentID string, req *request.CreatePaymentRequest) (*response.PaymentResponse, error) {
	req.ReferenceNumber = strings.TrimSpace(req.ReferenceNumber)

	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Payment validation failed", zap.Any("errors", errs))
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := parseAppointmentID(appointmentID)
	if err != nil {
		return nil, err
	}

	// 2. Check the appointment
	appointment, err := s.repo.Appointment.FindByID(ctx, id)
	if err != nil {
		return nil, utils.Upstream(err, "find appointment %s", id)
	}
	if appointment == nil {
		return nil, utils.NotFound("appointment not found")
	}
	if !appointment.OwnedBy(identity.UserID) {
		return nil, utils.Forbidden("appointment belongs to another account")
	}
	if appointment.Status.IsTerminal() {
		return nil, utils.Conflict("appointment is %s and no longer accepts payments", appointment.Status)
	}

	// 3. Record the claim, staff verifies it later
	now := time.Now()
	payment := &entity.PaymentTransaction{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		AppointmentID:   appointment.ID,
		PayerID:         identity.UserID,
		Amount:          req.Amount,
		PaymentType:     entity.PaymentType(req.PaymentType),
		PaymentMethod:   entity.PaymentMethod(req.PaymentMethod),
		ReferenceNumber: req.ReferenceNumber,
		ProofURL:        req.ProofURL,
		Status:          entity.PaymentPendingVerification,
	}

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Conflict("reference number already submitted for %s", req.PaymentMethod)
		}
		return nil, utils.Upstream(err, "record payment")
	}

	s.log.Info("Payment submitted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("appointment_id", appointment.ID.String()),
		zap.Float64("amount", payment.Amount))

	s.notifier.NotifyStaff(ctx, NotificationInput{
		Title: "Payment awaiting verification",
		Message: fmt.Sprintf("%s submitted a %s payment of %.2f via %s.",
			appointment.ContactName, payment.PaymentType, payment.Amount, payment.PaymentMethod),
		Type:                 entity.NotificationPaymentSubmitted,
		AppointmentID:        &appointment.ID,
		PaymentTransactionID: &payment.ID,
	})
	publishEvent(ctx, s.events, s.log, Event{
		Type:          EventPaymentSubmitted,
		AppointmentID: appointment.ID.String(),
		Status:        string(appointment.Status),
		PaymentID:     payment.ID.String(),
		ActorID:       actorID(identity),
	})

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) ListForAppointment(ctx context.Context, identity utils.Identity, appointmentID string) ([]response.PaymentResponse, error) {
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
		return nil, utils.Forbidden("appointment belongs to another account")
	}

	payments, err := s.repo.Payment.FindByAppointmentID(ctx, id)
	if err != nil {
		return nil, utils.Upstream(err, "list payments for %s", id)
	}

	result := make([]response.PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = response.PaymentToResponse(p)
	}
	return result, nil
}

func (s *paymentService) Verify(ctx context.Context, identity utils.Identity, paymentID string, req *request.VerifyPaymentRequest) (*response.PaymentVerificationResponse, error) {
	if !identity.IsAdmin() {
		return nil, utils.Forbidden("admin access required")
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(strings.TrimSpace(paymentID))
	if err != nil {
		return nil, utils.BadRequest("invalid payment id")
	}

	target := entity.PaymentTransactionStatus(req.Status)

	var (
		payment     *entity.PaymentTransaction
		appointment *entity.Appointment
		previous    entity.AppointmentStatus
	)

	err = withRetry(ctx, s.config.Retry, func(ctx context.Context) error {
		return s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			p, err := tx.Payment.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if p == nil {
				return utils.NotFound("payment not found")
			}
			if p.Status != entity.PaymentPendingVerification {
				return utils.Conflict("payment is already %s", p.Status)
			}

			a, err := tx.Appointment.FindByIDForUpdate(ctx, p.AppointmentID)
			if err != nil {
				return err
			}
			if a == nil {
				return utils.NotFound("appointment not found")
			}
			previous = a.Status

			verifier := identity.UserID
			p.Status = target
			p.VerifiedBy = &verifier
			p.Notes = req.Notes
			p.UpdatedAt = time.Now()
			if err := tx.Payment.UpdateStatus(ctx, p); err != nil {
				return err
			}

			verified, err := tx.Payment.SumVerified(ctx, a.ID)
			if err != nil {
				return err
			}

			paymentStatus := entity.DerivePaymentStatus(verified, a.TotalAmount)
			if paymentStatus != a.PaymentStatus {
				if err := tx.Appointment.UpdatePaymentStatus(ctx, a.ID, paymentStatus); err != nil {
					return err
				}
				a.PaymentStatus = paymentStatus
			}

			// A settled down payment confirms the booking when nothing else
			// stands in the way.
			if target == entity.PaymentVerified && verified >= a.DownPayment && canAutoConfirm(a.Status) {
				if err := tx.Appointment.UpdateStatus(ctx, a.ID, a.Status, entity.AppointmentStatusConfirmed, nil); err != nil {
					return err
				}
				a.Status = entity.AppointmentStatusConfirmed
			}

			payment, appointment = p, a
			return nil
		})
	})
	if err != nil {
		return nil, translateStoreError(err, "verify payment %s", id)
	}

	s.log.Info("Payment reviewed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("appointment_id", appointment.ID.String()),
		zap.String("status", string(payment.Status)),
		zap.String("payment_status", string(appointment.PaymentStatus)),
		zap.String("actor_id", actorID(identity)))

	s.afterVerify(ctx, identity, payment, appointment, previous)

	return &response.PaymentVerificationResponse{
		Payment:     response.PaymentToResponse(payment),
		Appointment: response.AppointmentToResponse(appointment),
	}, nil
}

func canAutoConfirm(status entity.AppointmentStatus) bool {
	switch status {
	case entity.AppointmentStatusPending, entity.AppointmentStatusTastingCompleted:
		return status.CanTransitionTo(entity.AppointmentStatusConfirmed)
	}
	return false
}

func (s *paymentService) afterVerify(ctx context.Context, identity utils.Identity, payment *entity.PaymentTransaction, appointment *entity.Appointment, previous entity.AppointmentStatus) {
	in := NotificationInput{
		AppointmentID:        &appointment.ID,
		PaymentTransactionID: &payment.ID,
	}
	eventType := EventPaymentVerified

	if payment.Status == entity.PaymentVerified {
		in.Title = "Payment verified"
		in.Message = fmt.Sprintf("Your payment of %.2f (ref %s) has been verified.", payment.Amount, payment.ReferenceNumber)
		in.Type = entity.NotificationPaymentVerified
		if appointment.Status != previous {
			in.Message += " Your booking is now confirmed."
		}
	} else {
		eventType = EventPaymentRejected
		in.Title = "Payment rejected"
		in.Message = fmt.Sprintf("Your payment of %.2f (ref %s) could not be verified.", payment.Amount, payment.ReferenceNumber)
		in.Type = entity.NotificationPaymentRejected
		if payment.Notes != nil && *payment.Notes != "" {
			in.Message += " " + *payment.Notes
		}
	}

	s.notifier.Notify(ctx, payment.PayerID, in)

	publishEvent(ctx, s.events, s.log, Event{
		Type:           eventType,
		AppointmentID:  appointment.ID.String(),
		Status:         string(appointment.Status),
		PreviousStatus: string(previous),
		PaymentID:      payment.ID.String(),
		ActorID:        actorID(identity),
	})
	if appointment.Status != previous {
		publishEvent(ctx, s.events, s.log, Event{
			Type:           EventAppointmentStatusChanged,
			AppointmentID:  appointment.ID.String(),
			Status:         string(appointment.Status),
			PreviousStatus: string(previous),
			ActorID:        actorID(identity),
		})
	}
}

func (s *paymentService) List(ctx context.Context, identity utils.Identity, req *request.ListPaymentsRequest) (*response.PaginatedResponse[response.PaymentResponse], error) {
	if !identity.IsStaff() {
		return nil, utils.Forbidden("staff access required")
	}

	status := entity.PaymentTransactionStatus(req.Status)
	if status != "" && !status.IsValid() {
		return nil, utils.InvalidStatus("invalid payment status %q", req.Status)
	}

	payments, err := s.repo.Payment.FindAll(ctx, status, req.Limit(), req.Offset())
	if err != nil {
		return nil, utils.Upstream(err, "list payments")
	}

	total, err := s.repo.Payment.Count(ctx, status)
	if err != nil {
		return nil, utils.Upstream(err, "count payments")
	}

	items := make([]response.PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = response.PaymentToResponse(p)
	}

	return response.NewPaginatedResponse(items, req.CurrentPage(), req.Limit(), total), nil
}
