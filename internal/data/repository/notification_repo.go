package repository

import (
	"context"
	"fmt"

	"catering-booking/internal/data/entity"
	"catering-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// NotificationRepository scopes every read and write by recipient so one
// user can never touch another user's rows.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	CountByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, recipientID uuid.UUID) (bool, error)
}

type notificationRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewNotificationRepository(db database.Querier, log *zap.Logger) NotificationRepository {
	return &notificationRepository{
		db:  db,
		log: log.With(zap.String("repository", "notification")),
	}
}

const notificationColumns = `id, recipient_id, audience, title, message, type, is_read,
	appointment_id, payment_transaction_id, created_at`

func scanNotification(row pgx.Row) (*entity.Notification, error) {
	var n entity.Notification
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Audience,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.IsRead,
		&n.AppointmentID,
		&n.PaymentTransactionID,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		n.Audience,
		n.Title,
		n.Message,
		n.Type,
		n.IsRead,
		n.AppointmentID,
		n.PaymentTransactionID,
		n.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create notification",
			zap.Error(err),
			zap.String("recipient_id", n.RecipientID.String()),
			zap.String("type", string(n.Type)),
		)
		return fmt.Errorf("create notification for %s: %w", n.RecipientID.String(), err)
	}

	return nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find notification", zap.Error(err), zap.String("notification_id", id.String()))
		return nil, fmt.Errorf("find notification %s: %w", id.String(), err)
	}
	return n, nil
}

func (r *notificationRepository) FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, recipientID, unreadOnly, limit, offset)
	if err != nil {
		r.log.Error("Failed to list notifications", zap.Error(err), zap.String("recipient_id", recipientID.String()))
		return nil, fmt.Errorf("list notifications for %s: %w", recipientID.String(), err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			r.log.Error("Failed to scan notification row", zap.Error(err))
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) CountByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND (NOT $2 OR is_read = FALSE)`

	var count int64
	if err := r.db.QueryRow(ctx, query, recipientID, unreadOnly).Scan(&count); err != nil {
		r.log.Error("Failed to count notifications", zap.Error(err), zap.String("recipient_id", recipientID.String()))
		return 0, fmt.Errorf("count notifications for %s: %w", recipientID.String(), err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		r.log.Error("Failed to mark notification read", zap.Error(err), zap.String("notification_id", id.String()))
		return false, fmt.Errorf("mark notification %s read: %w", id.String(), err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID)
	if err != nil {
		r.log.Error("Failed to mark all notifications read", zap.Error(err), zap.String("recipient_id", recipientID.String()))
		return 0, fmt.Errorf("mark all notifications read for %s: %w", recipientID.String(), err)
	}
	return result.RowsAffected(), nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		r.log.Error("Failed to delete notification", zap.Error(err), zap.String("notification_id", id.String()))
		return false, fmt.Errorf("delete notification %s: %w", id.String(), err)
	}
	return result.RowsAffected() > 0, nil
}
