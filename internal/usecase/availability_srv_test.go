package usecase

import (
	"context"
	"errors"
	"testing"

	"catering-booking/internal/data/entity"
	"catering-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAvailability(t *testing.T) {
	env := newTestEnv(t)
	env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusConfirmed)
	env.addAppointment(nil, "2025-12-25", "4:00 PM", entity.AppointmentStatusCancelled)
	env.addAppointment(nil, "2025-12-26", "6:00 AM", entity.AppointmentStatusPending)

	resp, err := env.svc.Availability.GetAvailability(context.Background(), "2025-12-25")
	require.NoError(t, err)

	assert.Equal(t, "2025-12-25", resp.Date)
	require.Len(t, resp.Slots, len(utils.TimeSlots))
	assert.Equal(t, len(utils.TimeSlots)-1, resp.AvailableCount)

	bySlot := map[string]bool{}
	for _, slot := range resp.Slots {
		bySlot[slot.TimeSlot] = slot.Available
		if slot.TimeSlot == "2:00 PM" {
			assert.Equal(t, "2025-12-25-2:00 PM", slot.ID)
			assert.Equal(t, "6:00 PM", slot.EndTime)
			assert.False(t, slot.NextDay)
		}
		if slot.TimeSlot == "7:00 PM" {
			assert.Equal(t, "11:00 PM", slot.EndTime)
		}
	}
	assert.False(t, bySlot["2:00 PM"])
	assert.True(t, bySlot["4:00 PM"])
	assert.True(t, bySlot["6:00 AM"])
}

func TestGetAvailability_TastingRescheduleKeepsSlot(t *testing.T) {
	env := newTestEnv(t)
	a := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusTastingRescheduleRequested)
	env.addTasting(a, "tok-moving", entity.TastingStatusRescheduleRequested)

	resp, err := env.svc.Availability.GetAvailability(context.Background(), "2025-12-25")
	require.NoError(t, err)
	assert.Equal(t, len(utils.TimeSlots)-1, resp.AvailableCount)
	for _, slot := range resp.Slots {
		if slot.TimeSlot == "2:00 PM" {
			assert.False(t, slot.Available)
		}
	}
}

func TestGetAvailability_ReadsFreshState(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	before, err := env.svc.Availability.GetAvailability(ctx, "2025-12-25")
	require.NoError(t, err)
	assert.Equal(t, len(utils.TimeSlots), before.AvailableCount)

	_, err = env.svc.Appointment.CreateAppointment(ctx, identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "10:00 AM"), "")
	require.NoError(t, err)

	after, err := env.svc.Availability.GetAvailability(ctx, "2025-12-25")
	require.NoError(t, err)
	assert.Equal(t, len(utils.TimeSlots)-1, after.AvailableCount)
}

func TestGetAvailability_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Availability.GetAvailability(ctx, "")
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = env.svc.Availability.GetAvailability(ctx, "25-12-2025")
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	env.store.Fail("appointment.FindActiveByDate", errors.New("timeout"), 1)
	_, err = env.svc.Availability.GetAvailability(ctx, "2025-12-25")
	assert.ErrorIs(t, err, utils.ErrUpstream)
}
