package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, AppointmentStatusPendingTastingConfirmation, true},
		{AppointmentStatusPending, AppointmentStatusCompleted, false},
		{AppointmentStatusPendingTastingConfirmation, AppointmentStatusTastingConfirmed, true},
		{AppointmentStatusPendingTastingConfirmation, AppointmentStatusTastingRescheduleRequested, true},
		{AppointmentStatusPendingTastingConfirmation, AppointmentStatusConfirmed, false},
		{AppointmentStatusTastingRescheduleRequested, AppointmentStatusTastingRescheduleRequested, true},
		{AppointmentStatusTastingRescheduleRequested, AppointmentStatusTastingConfirmed, true},
		{AppointmentStatusTastingConfirmed, AppointmentStatusTastingCompleted, true},
		{AppointmentStatusTastingConfirmed, AppointmentStatusConfirmed, false},
		{AppointmentStatusTastingCompleted, AppointmentStatusConfirmed, true},
		{AppointmentStatusTastingCompleted, AppointmentStatusCompleted, true},
		{AppointmentStatusTastingCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusPending, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCancelled, AppointmentStatusPending, false},
		{AppointmentStatus("archived"), AppointmentStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAppointmentStatus_Predicates(t *testing.T) {
	for _, s := range AllAppointmentStatuses {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, AppointmentStatus("not_a_real_status").IsValid())
	assert.False(t, AppointmentStatus("PENDING").IsValid())

	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.False(t, AppointmentStatusConfirmed.IsTerminal())
	assert.False(t, AppointmentStatus("bogus").IsTerminal())

	assert.False(t, AppointmentStatusCancelled.IsActive())
	assert.False(t, AppointmentStatusCompleted.IsActive())
	assert.True(t, AppointmentStatusTastingRescheduleRequested.IsActive())
	assert.Len(t, ActiveStatusStrings(), len(ActiveAppointmentStatuses))
}

func TestTastingStatus_MirrorsAppointmentStatus(t *testing.T) {
	for _, s := range []TastingStatus{
		TastingStatusPending,
		TastingStatusConfirmed,
		TastingStatusRescheduleRequested,
		TastingStatusCompleted,
	} {
		back, ok := TastingStatusFor(s.AppointmentStatus())
		assert.True(t, ok, s)
		assert.Equal(t, s, back)
	}

	_, ok := TastingStatusFor(AppointmentStatusConfirmed)
	assert.False(t, ok)
}

func TestDerivePaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentStatusUnpaid, DerivePaymentStatus(0, 10000))
	assert.Equal(t, PaymentStatusPartiallyPaid, DerivePaymentStatus(3000, 10000))
	assert.Equal(t, PaymentStatusFullyPaid, DerivePaymentStatus(10000, 10000))
	assert.Equal(t, PaymentStatusFullyPaid, DerivePaymentStatus(12000, 10000))
}
