package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeTarget struct {
	calls    atomic.Int32
	repaired int
	err      error
}

func (f *fakeTarget) Reconcile(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.repaired, f.err
}

func TestReconciler_RunsImmediatelyAndStops(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	target := &fakeTarget{repaired: 2}
	w := NewReconciler(target, time.Hour, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}

	assert.Equal(t, 1, logs.FilterMessage("Reconcile pass repaired appointments").Len())
	assert.Equal(t, 1, logs.FilterMessage("Reconciler stopped").Len())
}

func TestReconciler_KeepsRunningAfterFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	target := &fakeTarget{err: errors.New("connection reset")}
	w := NewReconciler(target, 10*time.Millisecond, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return target.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, logs.FilterMessage("Reconcile pass failed").Len(), 2)
}

func TestNewReconciler_DefaultInterval(t *testing.T) {
	w := NewReconciler(&fakeTarget{}, 0, zap.NewNop())
	assert.Equal(t, 5*time.Minute, w.interval)
}
