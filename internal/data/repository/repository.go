package repository

import (
	"context"
	"errors"
	"time"

	"catering-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrSlotTaken is returned when an insert or update would put two active
	// appointments on the same date and time slot.
	ErrSlotTaken = errors.New("time slot already booked")

	// ErrStatusChanged is returned by compare-and-swap updates when the row
	// no longer has the expected status.
	ErrStatusChanged = errors.New("status changed concurrently")

	// ErrDuplicate is returned on any other unique violation.
	ErrDuplicate = errors.New("duplicate record")
)

// TxManager runs fn with a Repository whose table repositories share one
// transaction. Idempotency is not transactional and is shared as is.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repo *Repository) error) error
}

type Repository struct {
	User         UserRepository
	Session      SessionRepository
	Appointment  AppointmentRepository
	Tasting      TastingRepository
	Payment      PaymentRepository
	Notification NotificationRepository
	Idempotency  IdempotencyRepository
	Tx           TxManager
}

func NewRepository(db database.PgxIface, rdb *redis.Client, idempotencyTTL time.Duration, log *zap.Logger) *Repository {
	var idem IdempotencyRepository = NewNoopIdempotencyRepository()
	if rdb != nil {
		idem = NewIdempotencyRepository(rdb, idempotencyTTL, log)
	}

	repo := newQuerierRepository(db, log)
	repo.Idempotency = idem
	repo.Tx = &pgxTxManager{db: db, idem: idem, log: log}
	return repo
}

func newQuerierRepository(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(q, log),
		Session:      NewSessionRepository(q, log),
		Appointment:  NewAppointmentRepository(q, log),
		Tasting:      NewTastingRepository(q, log),
		Payment:      NewPaymentRepository(q, log),
		Notification: NewNotificationRepository(q, log),
	}
}

type pgxTxManager struct {
	db   database.PgxIface
	idem IdempotencyRepository
	log  *zap.Logger
}

func (m *pgxTxManager) WithinTx(ctx context.Context, fn func(repo *Repository) error) error {
	return database.WithTx(ctx, m.db, func(tx pgx.Tx) error {
		txRepo := newQuerierRepository(tx, m.log)
		txRepo.Idempotency = m.idem
		txRepo.Tx = nestedTx{repo: txRepo}
		return fn(txRepo)
	})
}

// nestedTx joins the transaction that is already open.
type nestedTx struct {
	repo *Repository
}

func (n nestedTx) WithinTx(_ context.Context, fn func(repo *Repository) error) error {
	return fn(n.repo)
}
