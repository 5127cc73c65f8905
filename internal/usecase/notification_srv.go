package usecase

import (
	"context"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/dto/request"
	"catering-booking/internal/dto/response"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationInput is one message to emit. Links are optional.
type NotificationInput struct {
	Title                string
	Message              string
	Type                 entity.NotificationType
	AppointmentID        *uuid.UUID
	PaymentTransactionID *uuid.UUID
}

type NotificationService interface {
	// Emitter side. Failures are logged and swallowed.
	Notify(ctx context.Context, recipientID uuid.UUID, in NotificationInput)
	NotifyStaff(ctx context.Context, in NotificationInput)

	// Read side, scoped to the caller.
	List(ctx context.Context, identity utils.Identity, req *request.ListNotificationsRequest) (*response.NotificationListResponse, error)
	MarkRead(ctx context.Context, identity utils.Identity, notificationID string) error
	MarkAllRead(ctx context.Context, identity utils.Identity) (int64, error)
	Delete(ctx context.Context, identity utils.Identity, notificationID string) error
}

type notificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	log           *zap.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	log *zap.Logger,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		users:         users,
		log:           log.With(zap.String("service", "notification")),
	}
}

func (s *notificationService) write(ctx context.Context, recipientID uuid.UUID, audience entity.NotificationAudience, in NotificationInput) {
	n := &entity.Notification{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		RecipientID:          recipientID,
		Audience:             audience,
		Title:                in.Title,
		Message:              in.Message,
		Type:                 in.Type,
		AppointmentID:        in.AppointmentID,
		PaymentTransactionID: in.PaymentTransactionID,
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Warn("Failed to write notification",
			zap.Error(err),
			zap.String("recipient_id", recipientID.String()),
			zap.String("type", string(in.Type)),
		)
	}
}

func (s *notificationService) Notify(ctx context.Context, recipientID uuid.UUID, in NotificationInput) {
	if recipientID == uuid.Nil {
		return
	}
	s.write(context.WithoutCancel(ctx), recipientID, entity.AudienceCustomer, in)
}

func (s *notificationService) NotifyStaff(ctx context.Context, in NotificationInput) {
	ctx = context.WithoutCancel(ctx)

	staff, err := s.users.FindActiveStaff(ctx)
	if err != nil {
		s.log.Warn("Failed to load staff for notification", zap.Error(err), zap.String("type", string(in.Type)))
		return
	}

	for _, user := range staff {
		s.write(ctx, user.ID, entity.AudienceStaff, in)
	}
}

func (s *notificationService) List(ctx context.Context, identity utils.Identity, req *request.ListNotificationsRequest) (*response.NotificationListResponse, error) {
	notifications, err := s.notifications.FindByRecipient(ctx, identity.UserID, req.UnreadOnly, req.Limit(), req.Offset())
	if err != nil {
		return nil, utils.Upstream(err, "list notifications")
	}

	total, err := s.notifications.CountByRecipient(ctx, identity.UserID, req.UnreadOnly)
	if err != nil {
		return nil, utils.Upstream(err, "count notifications")
	}

	unread := total
	if !req.UnreadOnly {
		if unread, err = s.notifications.CountByRecipient(ctx, identity.UserID, true); err != nil {
			return nil, utils.Upstream(err, "count unread notifications")
		}
	}

	items := make([]response.NotificationResponse, len(notifications))
	for i, n := range notifications {
		items[i] = response.NotificationToResponse(n)
	}

	return &response.NotificationListResponse{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    response.NewPaginationMeta(req.CurrentPage(), req.Limit(), total),
	}, nil
}

// resolveMiss explains why a recipient scoped write touched no row.
func (s *notificationService) resolveMiss(ctx context.Context, identity utils.Identity, id uuid.UUID) error {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return utils.Upstream(err, "find notification")
	}
	if n == nil {
		return utils.NotFound("notification not found")
	}

	s.log.Warn("Cross-recipient notification access rejected",
		zap.String("notification_id", id.String()),
		zap.String("user_id", identity.UserID.String()),
	)
	return utils.Unauthorized("notification does not belong to the current user")
}

func parseNotificationID(notificationID string) (uuid.UUID, error) {
	id, err := uuid.Parse(notificationID)
	if err != nil {
		return uuid.Nil, utils.BadRequest("invalid notification id")
	}
	return id, nil
}

func (s *notificationService) MarkRead(ctx context.Context, identity utils.Identity, notificationID string) error {
	id, err := parseNotificationID(notificationID)
	if err != nil {
		return err
	}

	updated, err := s.notifications.MarkRead(ctx, id, identity.UserID)
	if err != nil {
		return utils.Upstream(err, "mark notification read")
	}
	if !updated {
		return s.resolveMiss(ctx, identity, id)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, identity utils.Identity) (int64, error) {
	count, err := s.notifications.MarkAllRead(ctx, identity.UserID)
	if err != nil {
		return 0, utils.Upstream(err, "mark all notifications read")
	}
	return count, nil
}

func (s *notificationService) Delete(ctx context.Context, identity utils.Identity, notificationID string) error {
	id, err := parseNotificationID(notificationID)
	if err != nil {
		return err
	}

	deleted, err := s.notifications.Delete(ctx, id, identity.UserID)
	if err != nil {
		return utils.Upstream(err, "delete notification")
	}
	if !deleted {
		return s.resolveMiss(ctx, identity, id)
	}
	return nil
}
