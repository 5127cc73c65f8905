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

// Tokens are never written to the log from this file.

type TastingRepository interface {
	Create(ctx context.Context, session *entity.TastingSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TastingSession, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.TastingSession, error)
	FindByToken(ctx context.Context, token string) (*entity.TastingSession, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*entity.TastingSession, error)
	FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*entity.TastingSession, error)
	FindAll(ctx context.Context, status entity.TastingStatus, limit, offset int) ([]*entity.TastingSession, error)
	Count(ctx context.Context, status entity.TastingStatus) (int64, error)
	Update(ctx context.Context, session *entity.TastingSession) error

	// FindMismatchedPairs lists sessions whose appointment is in a tasting
	// status other than the one the session implies, ordered by session id
	// and starting after afterID.
	FindMismatchedPairs(ctx context.Context, afterID uuid.UUID, limit int) ([]entity.TastingPair, error)
}

type tastingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewTastingRepository(db database.Querier, log *zap.Logger) TastingRepository {
	return &tastingRepository{
		db:  db,
		log: log.With(zap.String("repository", "tasting")),
	}
}

const tastingColumns = `id, appointment_id, token, proposed_date, proposed_time, status,
	reschedule_preferences, confirmed_at, completed_at, created_at, updated_at`

func scanTasting(row pgx.Row) (*entity.TastingSession, error) {
	var s entity.TastingSession
	err := row.Scan(
		&s.ID,
		&s.AppointmentID,
		&s.Token,
		&s.ProposedDate,
		&s.ProposedTime,
		&s.Status,
		&s.ReschedulePreferences,
		&s.ConfirmedAt,
		&s.CompletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *tastingRepository) Create(ctx context.Context, s *entity.TastingSession) error {
	query := `
		INSERT INTO tasting_sessions (` + tastingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.AppointmentID,
		s.Token,
		s.ProposedDate,
		s.ProposedTime,
		s.Status,
		s.ReschedulePreferences,
		s.ConfirmedAt,
		s.CompletedAt,
		s.CreatedAt,
		s.UpdatedAt,
	)

	if database.IsUniqueViolation(err, "") {
		return fmt.Errorf("create tasting session for appointment %s: %w", s.AppointmentID.String(), ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create tasting session",
			zap.Error(err),
			zap.String("appointment_id", s.AppointmentID.String()),
		)
		return fmt.Errorf("create tasting session for appointment %s: %w", s.AppointmentID.String(), err)
	}

	return nil
}

func (r *tastingRepository) findOne(ctx context.Context, query string, arg any, what string) (*entity.TastingSession, error) {
	s, err := scanTasting(r.db.QueryRow(ctx, query, arg))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find tasting session", zap.Error(err), zap.String("by", what))
		return nil, fmt.Errorf("find tasting session by %s: %w", what, err)
	}
	return s, nil
}

func (r *tastingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TastingSession, error) {
	return r.findOne(ctx, `SELECT `+tastingColumns+` FROM tasting_sessions WHERE id = $1`, id, "id")
}

func (r *tastingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.TastingSession, error) {
	return r.findOne(ctx, `SELECT `+tastingColumns+` FROM tasting_sessions WHERE id = $1 FOR UPDATE`, id, "id")
}

func (r *tastingRepository) FindByToken(ctx context.Context, token string) (*entity.TastingSession, error) {
	return r.findOne(ctx, `SELECT `+tastingColumns+` FROM tasting_sessions WHERE token = $1`, token, "token")
}

func (r *tastingRepository) FindByTokenForUpdate(ctx context.Context, token string) (*entity.TastingSession, error) {
	return r.findOne(ctx, `SELECT `+tastingColumns+` FROM tasting_sessions WHERE token = $1 FOR UPDATE`, token, "token")
}

func (r *tastingRepository) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*entity.TastingSession, error) {
	return r.findOne(ctx, `SELECT `+tastingColumns+` FROM tasting_sessions WHERE appointment_id = $1`, appointmentID, "appointment")
}

func (r *tastingRepository) FindAll(ctx context.Context, status entity.TastingStatus, limit, offset int) ([]*entity.TastingSession, error) {
	query := `
		SELECT ` + tastingColumns + `
		FROM tasting_sessions
		WHERE ($1 = '' OR status = $1)
		ORDER BY proposed_date ASC, created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		r.log.Error("Failed to list tasting sessions", zap.Error(err))
		return nil, fmt.Errorf("list tasting sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.TastingSession
	for rows.Next() {
		s, err := scanTasting(rows)
		if err != nil {
			r.log.Error("Failed to scan tasting session row", zap.Error(err))
			return nil, fmt.Errorf("scan tasting session row: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *tastingRepository) Count(ctx context.Context, status entity.TastingStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasting_sessions WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count tasting sessions", zap.Error(err))
		return 0, fmt.Errorf("count tasting sessions: %w", err)
	}
	return count, nil
}

func (r *tastingRepository) Update(ctx context.Context, s *entity.TastingSession) error {
	query := `
		UPDATE tasting_sessions
		SET proposed_date = $2, proposed_time = $3, status = $4, reschedule_preferences = $5,
		    confirmed_at = $6, completed_at = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		s.ID,
		s.ProposedDate,
		s.ProposedTime,
		s.Status,
		s.ReschedulePreferences,
		s.ConfirmedAt,
		s.CompletedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update tasting session",
			zap.Error(err),
			zap.String("tasting_id", s.ID.String()),
		)
		return fmt.Errorf("update tasting session %s: %w", s.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tasting session %s not found", s.ID.String())
	}

	return nil
}

func (r *tastingRepository) FindMismatchedPairs(ctx context.Context, afterID uuid.UUID, limit int) ([]entity.TastingPair, error) {
	query := `
		SELECT t.id, t.appointment_id, t.status, a.status
		FROM tasting_sessions t
		JOIN appointments a ON a.id = t.appointment_id
		WHERE a.status IN ('PENDING_TASTING_CONFIRMATION', 'TASTING_CONFIRMED', 'TASTING_RESCHEDULE_REQUESTED')
		  AND a.status <> CASE t.status
		                    WHEN 'pending' THEN 'PENDING_TASTING_CONFIRMATION'
		                    WHEN 'confirmed' THEN 'TASTING_CONFIRMED'
		                    WHEN 'reschedule_requested' THEN 'TASTING_RESCHEDULE_REQUESTED'
		                    WHEN 'completed' THEN 'TASTING_COMPLETED'
		                  END
		  AND t.id > $1
		ORDER BY t.id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		r.log.Error("Failed to find mismatched tasting pairs", zap.Error(err))
		return nil, fmt.Errorf("find mismatched tasting pairs: %w", err)
	}
	defer rows.Close()

	var pairs []entity.TastingPair
	for rows.Next() {
		var p entity.TastingPair
		if err := rows.Scan(&p.SessionID, &p.AppointmentID, &p.SessionStatus, &p.AppointmentStatus); err != nil {
			r.log.Error("Failed to scan tasting pair", zap.Error(err))
			return nil, fmt.Errorf("scan tasting pair: %w", err)
		}
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}
