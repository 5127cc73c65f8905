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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.PaymentTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error)
	FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]*entity.PaymentTransaction, error)
	FindAll(ctx context.Context, status entity.PaymentTransactionStatus, limit, offset int) ([]*entity.PaymentTransaction, error)
	Count(ctx context.Context, status entity.PaymentTransactionStatus) (int64, error)
	UpdateStatus(ctx context.Context, payment *entity.PaymentTransaction) error
	SumVerified(ctx context.Context, appointmentID uuid.UUID) (float64, error)
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, appointment_id, payer_id, amount, payment_type, payment_method,
	reference_number, proof_url, status, verified_by, notes, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.PaymentTransaction, error) {
	var p entity.PaymentTransaction
	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.PayerID,
		&p.Amount,
		&p.PaymentType,
		&p.PaymentMethod,
		&p.ReferenceNumber,
		&p.ProofURL,
		&p.Status,
		&p.VerifiedBy,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) scanAll(rows pgx.Rows) ([]*entity.PaymentTransaction, error) {
	defer rows.Close()

	var payments []*entity.PaymentTransaction
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.AppointmentID,
		p.PayerID,
		p.Amount,
		p.PaymentType,
		p.PaymentMethod,
		p.ReferenceNumber,
		p.ProofURL,
		p.Status,
		p.VerifiedBy,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)

	if database.IsUniqueViolation(err, "") {
		return fmt.Errorf("create payment %s: %w", p.ReferenceNumber, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("appointment_id", p.AppointmentID.String()),
		)
		return fmt.Errorf("create payment for appointment %s: %w", p.AppointmentID.String(), err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.PaymentTransaction, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID", zap.Error(err), zap.String("payment_id", id.String()))
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}
	return p, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE id = $1`, id)
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *paymentRepository) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]*entity.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, appointmentID)
	if err != nil {
		r.log.Error("Failed to find payments by appointment", zap.Error(err))
		return nil, fmt.Errorf("find payments by appointment %s: %w", appointmentID.String(), err)
	}

	return r.scanAll(rows)
}

func (r *paymentRepository) FindAll(ctx context.Context, status entity.PaymentTransactionStatus, limit, offset int) ([]*entity.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		r.log.Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return r.scanAll(rows)
}

func (r *paymentRepository) Count(ctx context.Context, status entity.PaymentTransactionStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payment_transactions WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count payments", zap.Error(err))
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, p *entity.PaymentTransaction) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, verified_by = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, p.ID, p.Status, p.VerifiedBy, p.Notes, p.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", p.ID.String()),
		)
		return fmt.Errorf("update payment %s status: %w", p.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", p.ID.String())
	}

	return nil
}

func (r *paymentRepository) SumVerified(ctx context.Context, appointmentID uuid.UUID) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::float8
		FROM payment_transactions
		WHERE appointment_id = $1 AND status = 'verified'
	`

	var total float64
	if err := r.db.QueryRow(ctx, query, appointmentID).Scan(&total); err != nil {
		r.log.Error("Failed to sum verified payments", zap.Error(err))
		return 0, fmt.Errorf("sum verified payments for %s: %w", appointmentID.String(), err)
	}
	return total, nil
}
