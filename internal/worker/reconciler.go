package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconcilable repairs drift between appointments and tasting sessions.
type Reconcilable interface {
	Reconcile(ctx context.Context) (int, error)
}

// Reconciler runs a reconcile pass on a fixed interval.
type Reconciler struct {
	target   Reconcilable
	interval time.Duration
	log      *zap.Logger
}

func NewReconciler(target Reconcilable, interval time.Duration, log *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{
		target:   target,
		interval: interval,
		log:      log.With(zap.String("worker", "reconciler")),
	}
}

// Run blocks until ctx is cancelled. A failed pass is logged and retried on
// the next tick.
func (w *Reconciler) Run(ctx context.Context) error {
	w.log.Info("Reconciler started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("Reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Reconciler) runOnce(ctx context.Context) {
	repaired, err := w.target.Reconcile(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error("Reconcile pass failed", zap.Error(err))
		return
	}
	if repaired > 0 {
		w.log.Info("Reconcile pass repaired appointments", zap.Int("repaired", repaired))
	}
}
