package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// idem:appointment:create:{key} -> "pending" | appointment id
const keyIdemAppointmentCreate = "idem:appointment:create:%s"

const idemPending = "pending"

// IdempotencyRepository remembers which appointment a client supplied
// Idempotency-Key produced.
type IdempotencyRepository interface {
	// Reserve claims key. When the key was already claimed it returns the
	// stored value, which is "pending" while the first request is running.
	Reserve(ctx context.Context, key string) (existing string, reserved bool, err error)
	Complete(ctx context.Context, key, appointmentID string) error
	Release(ctx context.Context, key string) error
}

// IsPending reports whether a value returned by Reserve belongs to a request
// that has not finished yet.
func IsPending(value string) bool {
	return value == idemPending
}

type idempotencyRepository struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewIdempotencyRepository(rdb *redis.Client, ttl time.Duration, log *zap.Logger) IdempotencyRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &idempotencyRepository{
		rdb: rdb,
		ttl: ttl,
		log: log.With(zap.String("repository", "idempotency")),
	}
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key string) (string, bool, error) {
	redisKey := fmt.Sprintf(keyIdemAppointmentCreate, key)

	ok, err := r.rdb.SetNX(ctx, redisKey, idemPending, r.ttl).Result()
	if err != nil {
		r.log.Error("Failed to reserve idempotency key", zap.Error(err))
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	existing, err := r.rdb.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET, try once more.
		ok, err = r.rdb.SetNX(ctx, redisKey, idemPending, r.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		return idemPending, ok, nil
	}
	if err != nil {
		r.log.Error("Failed to read idempotency key", zap.Error(err))
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}

	return existing, false, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, appointmentID string) error {
	if err := r.rdb.Set(ctx, fmt.Sprintf(keyIdemAppointmentCreate, key), appointmentID, r.ttl).Err(); err != nil {
		r.log.Error("Failed to complete idempotency key", zap.Error(err))
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, fmt.Sprintf(keyIdemAppointmentCreate, key)).Err(); err != nil {
		r.log.Error("Failed to release idempotency key", zap.Error(err))
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

type noopIdempotencyRepository struct{}

// NewNoopIdempotencyRepository accepts every key. Used when redis is not configured.
func NewNoopIdempotencyRepository() IdempotencyRepository {
	return noopIdempotencyRepository{}
}

func (noopIdempotencyRepository) Reserve(context.Context, string) (string, bool, error) {
	return "", true, nil
}

func (noopIdempotencyRepository) Complete(context.Context, string, string) error { return nil }

func (noopIdempotencyRepository) Release(context.Context, string) error { return nil }
