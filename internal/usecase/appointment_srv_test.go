package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/dto/request"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAppointment_NonTastingEventStartsPending(t *testing.T) {
	env := newTestEnv(t)
	staff := env.addUser(entity.RoleAssistant)
	customer := env.addUser(entity.RoleCustomer)

	resp, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "")
	require.NoError(t, err)

	assert.Equal(t, entity.AppointmentStatusPending, resp.Status)
	assert.Equal(t, entity.PaymentStatusUnpaid, resp.PaymentStatus)
	assert.Equal(t, entity.BookingSourceCustomer, resp.BookingSource)
	assert.Equal(t, "6:00 PM", resp.EventEndTime)
	assert.Nil(t, resp.Tasting)

	assert.Len(t, env.notificationsFor(staff.ID), 1)
	assert.Len(t, env.notificationsFor(customer.ID), 1)
	assert.Equal(t, []string{EventAppointmentCreated}, env.events.types())
}

func TestCreateAppointment_WeddingProposesTasting(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)

	resp, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("wedding", "2025-12-25", "2:00 PM"), "")
	require.NoError(t, err)

	assert.Equal(t, entity.AppointmentStatusPendingTastingConfirmation, resp.Status)
	require.NotNil(t, resp.Tasting)
	assert.Equal(t, "2025-12-11", resp.Tasting.ProposedDate)
	assert.Equal(t, "10:00 AM", resp.Tasting.ProposedTime)
	assert.Equal(t, entity.TastingStatusPending, resp.Tasting.Status)

	session := env.store.Tasting(uuid.MustParse(resp.Tasting.ID))
	require.NotNil(t, session)
	assert.Len(t, session.Token, 64)

	mail := env.mail.wait(t)
	assert.Equal(t, "juan@example.com", mail.to)
	assert.Contains(t, mail.body, "http://api.test/api/tasting/confirm?token="+session.Token)
	assert.Contains(t, mail.body, "http://web.test/tasting/reschedule?token="+session.Token)

	requireNoSecret(t, env.logs, session.Token)
}

func TestCreateAppointment_TastingNeverProposedBeforeTomorrow(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)

	resp, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("debut", "2025-06-05", "6:00 PM"), "")
	require.NoError(t, err)

	require.NotNil(t, resp.Tasting)
	assert.Equal(t, "2025-06-02", resp.Tasting.ProposedDate)
}

func TestCreateAppointment_CustomTastingDate(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)

	req := bookingRequest("wedding", "2025-12-25", "2:00 PM")
	req.TastingDate = utils.StringPtr("2025-11-20")
	req.TastingTime = utils.StringPtr("3:00 PM")

	resp, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer), req, "")
	require.NoError(t, err)

	require.NotNil(t, resp.Tasting)
	assert.Equal(t, "2025-11-20", resp.Tasting.ProposedDate)
	assert.Equal(t, "3:00 PM", resp.Tasting.ProposedTime)
}

func TestCreateAppointment_Validation(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)

	tests := []struct {
		name   string
		mutate func(r *request.CreateAppointmentRequest)
	}{
		{"past date", func(r *request.CreateAppointmentRequest) { r.EventDate = "2025-05-31" }},
		{"unknown slot", func(r *request.CreateAppointmentRequest) { r.EventTime = "2:30 PM" }},
		{"bad date format", func(r *request.CreateAppointmentRequest) { r.EventDate = "12/25/2025" }},
		{"no guests", func(r *request.CreateAppointmentRequest) { r.GuestCount = 0 }},
		{"down payment above total", func(r *request.CreateAppointmentRequest) { r.DownPayment = r.TotalAmount + 1 }},
		{"unknown event type", func(r *request.CreateAppointmentRequest) { r.EventType = "funeral" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := bookingRequest("birthday", "2025-12-25", "2:00 PM")
			tt.mutate(req)

			_, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer), req, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrBadRequest)
		})
	}
}

func TestCreateAppointment_SlotTaken(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusConfirmed)

	_, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestCreateAppointment_CancelledSlotCanBeRebooked(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusCancelled)

	resp, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "")
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusPending, resp.Status)
}

func TestCreateAppointment_ConcurrentBookingsOfOneSlot(t *testing.T) {
	env := newTestEnv(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for i := 0; i < attempts; i++ {
		customer := env.addUser(entity.RoleCustomer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
				bookingRequest("birthday", "2025-12-25", "2:00 PM"), "")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, utils.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	active, err := env.repo.Appointment.FindActiveByDate(context.Background(), mustDate(t, "2025-12-25"))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateAppointment_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	first, err := env.svc.Appointment.CreateAppointment(ctx, identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "order-42")
	require.NoError(t, err)

	second, err := env.svc.Appointment.CreateAppointment(ctx, identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "order-42")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	count, err := env.repo.Appointment.CountByUserID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{EventAppointmentCreated}, env.events.types())
}

func TestCreateAppointment_IdempotencyKeysAreScopedPerUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(entity.RoleCustomer)
	bob := env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	a, err := env.svc.Appointment.CreateAppointment(ctx, identityOf(alice),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "same-key")
	require.NoError(t, err)

	b, err := env.svc.Appointment.CreateAppointment(ctx, identityOf(bob),
		bookingRequest("birthday", "2025-12-25", "4:00 PM"), "same-key")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateAppointment_InFlightKeyConflicts(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	_, reserved, err := env.repo.Idempotency.Reserve(ctx, customer.ID.String()+":busy")
	require.NoError(t, err)
	require.True(t, reserved)

	_, err = env.svc.Appointment.CreateAppointment(ctx, identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "busy")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestCreateAppointment_IdempotencyStoreDown(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	env.store.Fail("idempotency.Reserve", errors.New("redis: connection refused"), 0)

	resp, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "order-1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
}

func TestCreateAppointment_KeyReleasedAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	blocker := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)

	_, err := env.svc.Appointment.CreateAppointment(ctx, identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "retry-me")
	require.ErrorIs(t, err, utils.ErrConflict)

	blocker.Status = entity.AppointmentStatusCancelled
	env.store.AddAppointment(blocker)

	resp, err := env.svc.Appointment.CreateAppointment(ctx, identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "retry-me")
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusPending, resp.Status)
}

func TestAdminCreateAppointment(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	customer := env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	userID := customer.ID.String()
	req := &request.AdminCreateAppointmentRequest{
		CreateAppointmentRequest: *bookingRequest("corporate", "2025-09-10", "12:00 PM"),
		UserID:                   &userID,
		AdminNotes:               utils.StringPtr("booked by phone"),
	}

	resp, err := env.svc.Appointment.AdminCreateAppointment(ctx, identityOf(admin), req, "")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingSourceAdmin, resp.BookingSource)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, userID, *resp.UserID)
	require.NotNil(t, resp.AdminNotes)

	_, err = env.svc.Appointment.AdminCreateAppointment(ctx, identityOf(customer), req, "")
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestUpdateStatus_UnknownStatusRejectedBeforeStore(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	a := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)

	_, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
		&request.UpdateStatusRequest{Status: "not_a_real_status"})
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrInvalidStatus)
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	assert.Equal(t, entity.AppointmentStatusPending, env.store.Appointment(a.ID).Status)
	assert.Zero(t, env.store.Writes())
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		from    entity.AppointmentStatus
		to      entity.AppointmentStatus
		allowed bool
	}{
		{entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed, true},
		{entity.AppointmentStatusPending, entity.AppointmentStatusCancelled, true},
		{entity.AppointmentStatusConfirmed, entity.AppointmentStatusCompleted, true},
		{entity.AppointmentStatusTastingCompleted, entity.AppointmentStatusConfirmed, true},
		{entity.AppointmentStatusCompleted, entity.AppointmentStatusPending, false},
		{entity.AppointmentStatusCancelled, entity.AppointmentStatusConfirmed, false},
		{entity.AppointmentStatusPending, entity.AppointmentStatusCompleted, false},
		{entity.AppointmentStatusTastingCompleted, entity.AppointmentStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			env := newTestEnv(t)
			admin := env.addUser(entity.RoleAdmin)
			a := env.addAppointment(nil, "2025-12-25", "2:00 PM", tt.from)

			_, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
				&request.UpdateStatusRequest{Status: string(tt.to)})

			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, env.store.Appointment(a.ID).Status)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrConflict)
			assert.Equal(t, tt.from, env.store.Appointment(a.ID).Status)
		})
	}
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	assistant := env.addUser(entity.RoleAssistant)
	a := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)

	_, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(assistant), a.ID.String(),
		&request.UpdateStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestUpdateStatus_NotifiesOwner(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	customer := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(customer, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)

	resp, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
		&request.UpdateStatusRequest{Status: "confirmed", AdminNotes: utils.StringPtr("deposit received")})
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusConfirmed, resp.Status)
	require.NotNil(t, resp.User)
	assert.Equal(t, customer.Email, resp.User.Email)

	notes := env.notificationsFor(customer.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationAppointmentStatusChanged, notes[0].Type)
	assert.Equal(t, []string{EventAppointmentStatusChanged}, env.events.types())
}

func TestUpdateStatus_SameStatusOnlyEditsNotes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	customer := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(customer, "2025-12-25", "2:00 PM", entity.AppointmentStatusConfirmed)

	resp, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
		&request.UpdateStatusRequest{Status: "confirmed", AdminNotes: utils.StringPtr("vegetarian menu")})
	require.NoError(t, err)

	require.NotNil(t, resp.AdminNotes)
	assert.Equal(t, "vegetarian menu", *resp.AdminNotes)
	assert.Empty(t, env.notificationsFor(customer.ID))
	assert.Empty(t, env.events.types())
}

func TestUpdateStatus_SyncsTastingSession(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	a := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusPendingTastingConfirmation)
	session := env.addTasting(a, "tok-sync", entity.TastingStatusPending)

	_, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
		&request.UpdateStatusRequest{Status: string(entity.AppointmentStatusTastingConfirmed)})
	require.NoError(t, err)

	stored := env.store.Tasting(session.ID)
	assert.Equal(t, entity.TastingStatusConfirmed, stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)
}

func TestUpdateStatus_StartingTastingCreatesSession(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	a := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)

	resp, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
		&request.UpdateStatusRequest{Status: string(entity.AppointmentStatusPendingTastingConfirmation)})
	require.NoError(t, err)

	require.NotNil(t, resp.Tasting)
	assert.Equal(t, entity.TastingStatusPending, resp.Tasting.Status)

	mail := env.mail.wait(t)
	assert.Equal(t, a.ContactEmail, mail.to)
}

func TestUpdateStatus_TastingTargetWithoutSessionRollsBack(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	a := env.addAppointment(nil, "2025-12-25", "2:00 PM", entity.AppointmentStatusPendingTastingConfirmation)

	_, err := env.svc.Appointment.UpdateStatus(context.Background(), identityOf(admin), a.ID.String(),
		&request.UpdateStatusRequest{Status: string(entity.AppointmentStatusTastingConfirmed)})
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.Equal(t, entity.AppointmentStatusPendingTastingConfirmation, env.store.Appointment(a.ID).Status)
}

func TestCancelMyAppointment(t *testing.T) {
	env := newTestEnv(t)
	staff := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	stranger := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	ctx := context.Background()

	_, err := env.svc.Appointment.CancelMyAppointment(ctx, identityOf(stranger), a.ID.String())
	assert.ErrorIs(t, err, utils.ErrForbidden)

	resp, err := env.svc.Appointment.CancelMyAppointment(ctx, identityOf(owner), a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusCancelled, resp.Status)
	assert.Len(t, env.notificationsFor(staff.ID), 1)

	_, err = env.svc.Appointment.CancelMyAppointment(ctx, identityOf(owner), a.ID.String())
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestGetAppointment_Access(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(entity.RoleCustomer)
	stranger := env.addUser(entity.RoleCustomer)
	assistant := env.addUser(entity.RoleAssistant)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPendingTastingConfirmation)
	env.addTasting(a, "tok-get", entity.TastingStatusPending)
	ctx := context.Background()

	resp, err := env.svc.Appointment.GetAppointment(ctx, identityOf(owner), a.ID.String())
	require.NoError(t, err)
	require.NotNil(t, resp.Tasting)

	_, err = env.svc.Appointment.GetAppointment(ctx, identityOf(assistant), a.ID.String())
	require.NoError(t, err)

	_, err = env.svc.Appointment.GetAppointment(ctx, identityOf(stranger), a.ID.String())
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = env.svc.Appointment.GetAppointment(ctx, identityOf(owner), uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.svc.Appointment.GetAppointment(ctx, identityOf(owner), "not-a-uuid")
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestListAppointments(t *testing.T) {
	env := newTestEnv(t)
	assistant := env.addUser(entity.RoleAssistant)
	owner := env.addUser(entity.RoleCustomer)
	env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	env.addAppointment(owner, "2025-12-25", "4:00 PM", entity.AppointmentStatusConfirmed)
	env.addAppointment(nil, "2025-12-26", "2:00 PM", entity.AppointmentStatusPending)
	ctx := context.Background()

	all, err := env.svc.Appointment.ListAppointments(ctx, identityOf(assistant), &request.ListAppointmentsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.Total)

	pending, err := env.svc.Appointment.ListAppointments(ctx, identityOf(assistant),
		&request.ListAppointmentsRequest{Status: "pending", Date: "2025-12-25"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Pagination.Total)

	_, err = env.svc.Appointment.ListAppointments(ctx, identityOf(assistant),
		&request.ListAppointmentsRequest{Status: "bogus"})
	assert.ErrorIs(t, err, utils.ErrInvalidStatus)

	_, err = env.svc.Appointment.ListAppointments(ctx, identityOf(owner), &request.ListAppointmentsRequest{})
	assert.ErrorIs(t, err, utils.ErrForbidden)

	mine, err := env.svc.Appointment.ListMyAppointments(ctx, identityOf(owner), &request.PaginatedRequest{Page: 1, PerPage: 1})
	require.NoError(t, err)
	assert.Len(t, mine.Data, 1)
	assert.Equal(t, int64(2), mine.Pagination.Total)
	assert.Equal(t, 2, mine.Pagination.TotalPages)
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := utils.ParseDate(value)
	require.NoError(t, err)
	return parsed
}

func TestEventPublishFailureDoesNotFailBooking(t *testing.T) {
	env := newTestEnv(t)
	env.events.err = errors.New("broker down")
	customer := env.addUser(entity.RoleCustomer)

	_, err := env.svc.Appointment.CreateAppointment(context.Background(), identityOf(customer),
		bookingRequest("birthday", "2025-12-25", "2:00 PM"), "")
	require.NoError(t, err)

	found := false
	for _, entry := range env.logs.FilterMessage("Failed to publish event").All() {
		if strings.Contains(entry.ContextMap()["event"].(string), "appointment.created") {
			found = true
		}
	}
	assert.True(t, found)
}
