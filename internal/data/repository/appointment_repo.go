package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ActiveSlotConstraint is the partial unique index that keeps one active
// appointment per (event_date, event_time).
const ActiveSlotConstraint = "appointments_active_slot_uidx"

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Appointment, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindAll(ctx context.Context, filter entity.AppointmentFilter, limit, offset int) ([]*entity.Appointment, error)
	Count(ctx context.Context, filter entity.AppointmentFilter) (int64, error)

	// Business queries
	FindActiveByDate(ctx context.Context, date time.Time) ([]*entity.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, adminNotes *string) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error
}

type appointmentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAppointmentRepository(db database.Querier, log *zap.Logger) AppointmentRepository {
	return &appointmentRepository{
		db:  db,
		log: log.With(zap.String("repository", "appointment")),
	}
}

const appointmentColumns = `id, user_id, event_type, event_date, event_time, guest_count, venue_address,
	contact_name, contact_email, contact_phone, total_amount, down_payment, booking_source,
	payment_status, status, admin_notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*entity.Appointment, error) {
	var a entity.Appointment
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.EventType,
		&a.EventDate,
		&a.EventTime,
		&a.GuestCount,
		&a.VenueAddress,
		&a.ContactName,
		&a.ContactEmail,
		&a.ContactPhone,
		&a.TotalAmount,
		&a.DownPayment,
		&a.BookingSource,
		&a.PaymentStatus,
		&a.Status,
		&a.AdminNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) scanAll(rows pgx.Rows) ([]*entity.Appointment, error) {
	defer rows.Close()

	var appointments []*entity.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			r.log.Error("Failed to scan appointment row", zap.Error(err))
			return nil, fmt.Errorf("scan appointment row: %w", err)
		}
		appointments = append(appointments, a)
	}

	return appointments, rows.Err()
}

func (r *appointmentRepository) Create(ctx context.Context, a *entity.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.EventType,
		a.EventDate,
		a.EventTime,
		a.GuestCount,
		a.VenueAddress,
		a.ContactName,
		a.ContactEmail,
		a.ContactPhone,
		a.TotalAmount,
		a.DownPayment,
		a.BookingSource,
		a.PaymentStatus,
		a.Status,
		a.AdminNotes,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if database.IsUniqueViolation(err, ActiveSlotConstraint) {
		return fmt.Errorf("create appointment on %s %s: %w",
			a.EventDate.Format("2006-01-02"), a.EventTime, ErrSlotTaken)
	}
	if err != nil {
		r.log.Error("Failed to create appointment",
			zap.Error(err),
			zap.String("appointment_id", a.ID.String()),
		)
		return fmt.Errorf("create appointment %s: %w", a.ID.String(), err)
	}

	return nil
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	return r.findOne(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *appointmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	return r.findOne(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

func (r *appointmentRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find appointment by ID",
			zap.Error(err),
			zap.String("appointment_id", id.String()),
		)
		return nil, fmt.Errorf("find appointment by ID %s: %w", id.String(), err)
	}
	return a, nil
}

func (r *appointmentRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE user_id = $1
		ORDER BY event_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find appointments by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find appointments by user ID %s: %w", userID.String(), err)
	}

	return r.scanAll(rows)
}

func (r *appointmentRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count appointments by user ID", zap.Error(err))
		return 0, fmt.Errorf("count appointments by user ID %s: %w", userID.String(), err)
	}
	return count, nil
}

func buildAppointmentFilter(filter entity.AppointmentFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EventDate != nil {
		args = append(args, *filter.EventDate)
		conds = append(conds, fmt.Sprintf("event_date = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *appointmentRepository) FindAll(ctx context.Context, filter entity.AppointmentFilter, limit, offset int) ([]*entity.Appointment, error) {
	where, args := buildAppointmentFilter(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		%s
		ORDER BY event_date ASC, created_at ASC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list appointments", zap.Error(err))
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return r.scanAll(rows)
}

func (r *appointmentRepository) Count(ctx context.Context, filter entity.AppointmentFilter) (int64, error) {
	where, args := buildAppointmentFilter(filter)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count appointments", zap.Error(err))
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) FindActiveByDate(ctx context.Context, date time.Time) ([]*entity.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE event_date = $1 AND status = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, date, entity.ActiveStatusStrings())
	if err != nil {
		r.log.Error("Failed to find active appointments by date",
			zap.Error(err),
			zap.Time("date", date),
		)
		return nil, fmt.Errorf("find active appointments on %s: %w", date.Format("2006-01-02"), err)
	}

	return r.scanAll(rows)
}

// UpdateStatus moves the appointment from one status to another. Nil notes
// keep the stored admin notes.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, adminNotes *string) error {
	query := `
		UPDATE appointments
		SET status = $3, admin_notes = COALESCE($4, admin_notes), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, from, to, adminNotes)
	if database.IsUniqueViolation(err, ActiveSlotConstraint) {
		return fmt.Errorf("update appointment %s status to %s: %w", id.String(), to, ErrSlotTaken)
	}
	if err != nil {
		r.log.Error("Failed to update appointment status",
			zap.Error(err),
			zap.String("appointment_id", id.String()),
			zap.String("status", string(to)),
		)
		return fmt.Errorf("update appointment %s status to %s: %w", id.String(), to, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update appointment %s from %s: %w", id.String(), from, ErrStatusChanged)
	}

	return nil
}

func (r *appointmentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	query := `UPDATE appointments SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update appointment payment status",
			zap.Error(err),
			zap.String("appointment_id", id.String()),
		)
		return fmt.Errorf("update appointment %s payment status: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s not found", id.String())
	}

	return nil
}
