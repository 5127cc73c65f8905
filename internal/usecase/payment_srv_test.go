package usecase

import (
	"context"
	"testing"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/dto/request"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentRequest(amount float64, ref string) *request.CreatePaymentRequest {
	return &request.CreatePaymentRequest{
		Amount:          amount,
		PaymentType:     "down_payment",
		PaymentMethod:   "gcash",
		ReferenceNumber: ref,
	}
}

// addPayment seeds a pending payment for a.
func (e *testEnv) addPayment(a *entity.Appointment, payer *entity.User, amount float64, ref string) *entity.PaymentTransaction {
	p := &entity.PaymentTransaction{
		Base:            entity.Base{ID: uuid.New(), CreatedAt: fixedNow, UpdatedAt: fixedNow},
		AppointmentID:   a.ID,
		PayerID:         payer.ID,
		Amount:          amount,
		PaymentType:     entity.PaymentTypeDownPayment,
		PaymentMethod:   entity.PaymentMethodGCash,
		ReferenceNumber: ref,
		Status:          entity.PaymentPendingVerification,
	}
	e.store.AddPayment(p)
	return p
}

func TestSubmitPayment(t *testing.T) {
	env := newTestEnv(t)
	staff := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)

	resp, err := env.svc.Payment.Submit(context.Background(), identityOf(owner), a.ID.String(), paymentRequest(3000, " GC-1001 "))
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentPendingVerification, resp.Status)
	assert.Equal(t, "GC-1001", resp.ReferenceNumber)
	assert.Equal(t, owner.ID.String(), resp.PayerID)
	assert.Equal(t, entity.PaymentStatusUnpaid, env.store.Appointment(a.ID).PaymentStatus)

	notes := env.notificationsFor(staff.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationPaymentSubmitted, notes[0].Type)
	assert.Equal(t, []string{EventPaymentSubmitted}, env.events.types())
}

func TestSubmitPayment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(entity.RoleCustomer)
	stranger := env.addUser(entity.RoleCustomer)
	open := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	cancelled := env.addAppointment(owner, "2025-12-26", "2:00 PM", entity.AppointmentStatusCancelled)
	ctx := context.Background()

	_, err := env.svc.Payment.Submit(ctx, identityOf(owner), open.ID.String(), paymentRequest(3000, "REF-1"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		identity utils.Identity
		id       string
		req      *request.CreatePaymentRequest
		want     error
	}{
		{"someone else's booking", identityOf(stranger), open.ID.String(), paymentRequest(100, "REF-2"), utils.ErrForbidden},
		{"cancelled booking", identityOf(owner), cancelled.ID.String(), paymentRequest(100, "REF-3"), utils.ErrConflict},
		{"reused reference", identityOf(owner), open.ID.String(), paymentRequest(100, "REF-1"), utils.ErrConflict},
		{"zero amount", identityOf(owner), open.ID.String(), paymentRequest(0, "REF-4"), utils.ErrBadRequest},
		{"unknown appointment", identityOf(owner), uuid.NewString(), paymentRequest(100, "REF-5"), utils.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Payment.Submit(ctx, tt.identity, tt.id, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitPayment_SameReferenceOtherMethod(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	ctx := context.Background()

	_, err := env.svc.Payment.Submit(ctx, identityOf(owner), a.ID.String(), paymentRequest(1000, "0001"))
	require.NoError(t, err)

	other := paymentRequest(1000, "0001")
	other.PaymentMethod = "bank_transfer"
	_, err = env.svc.Payment.Submit(ctx, identityOf(owner), a.ID.String(), other)
	require.NoError(t, err)
}

func TestVerifyPayment_ConfirmsPendingBooking(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	p := env.addPayment(a, owner, 3000, "GC-1")

	resp, err := env.svc.Payment.Verify(context.Background(), identityOf(admin), p.ID.String(),
		&request.VerifyPaymentRequest{Status: "verified"})
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentVerified, resp.Payment.Status)
	require.NotNil(t, resp.Payment.VerifiedBy)
	assert.Equal(t, admin.ID.String(), *resp.Payment.VerifiedBy)
	assert.Equal(t, entity.AppointmentStatusConfirmed, resp.Appointment.Status)
	assert.Equal(t, entity.PaymentStatusPartiallyPaid, resp.Appointment.PaymentStatus)

	stored := env.store.Appointment(a.ID)
	assert.Equal(t, entity.AppointmentStatusConfirmed, stored.Status)
	assert.Equal(t, entity.PaymentStatusPartiallyPaid, stored.PaymentStatus)

	notes := env.notificationsFor(owner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationPaymentVerified, notes[0].Type)
	assert.Contains(t, notes[0].Message, "now confirmed")
	assert.Equal(t, []string{EventPaymentVerified, EventAppointmentStatusChanged}, env.events.types())
}

func TestVerifyPayment_BelowDownPaymentKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	p := env.addPayment(a, owner, 1000, "GC-small")

	resp, err := env.svc.Payment.Verify(context.Background(), identityOf(admin), p.ID.String(),
		&request.VerifyPaymentRequest{Status: "verified"})
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusPending, resp.Appointment.Status)
	assert.Equal(t, entity.PaymentStatusPartiallyPaid, resp.Appointment.PaymentStatus)
	assert.Equal(t, []string{EventPaymentVerified}, env.events.types())
}

func TestVerifyPayment_TastingBookingIsNotAutoConfirmed(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusTastingConfirmed)
	p := env.addPayment(a, owner, 10000, "GC-full")

	resp, err := env.svc.Payment.Verify(context.Background(), identityOf(admin), p.ID.String(),
		&request.VerifyPaymentRequest{Status: "verified"})
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusTastingConfirmed, resp.Appointment.Status)
	assert.Equal(t, entity.PaymentStatusFullyPaid, resp.Appointment.PaymentStatus)
}

func TestVerifyPayment_CompletedTastingIsConfirmed(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusTastingCompleted)
	p := env.addPayment(a, owner, 3000, "GC-after-tasting")

	resp, err := env.svc.Payment.Verify(context.Background(), identityOf(admin), p.ID.String(),
		&request.VerifyPaymentRequest{Status: "verified"})
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusConfirmed, resp.Appointment.Status)
}

func TestVerifyPayment_Reject(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	p := env.addPayment(a, owner, 3000, "GC-bad")
	ctx := context.Background()

	resp, err := env.svc.Payment.Verify(ctx, identityOf(admin), p.ID.String(),
		&request.VerifyPaymentRequest{Status: "rejected", Notes: utils.StringPtr("Reference not found in GCash records.")})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentRejected, resp.Payment.Status)
	assert.Equal(t, entity.AppointmentStatusPending, resp.Appointment.Status)
	assert.Equal(t, entity.PaymentStatusUnpaid, resp.Appointment.PaymentStatus)

	notes := env.notificationsFor(owner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationPaymentRejected, notes[0].Type)
	assert.Contains(t, notes[0].Message, "Reference not found")
	assert.Equal(t, []string{EventPaymentRejected}, env.events.types())

	_, err = env.svc.Payment.Verify(ctx, identityOf(admin), p.ID.String(), &request.VerifyPaymentRequest{Status: "verified"})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestVerifyPayment_AccessAndInput(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	assistant := env.addUser(entity.RoleAssistant)
	owner := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	p := env.addPayment(a, owner, 3000, "GC-2")
	ctx := context.Background()

	_, err := env.svc.Payment.Verify(ctx, identityOf(assistant), p.ID.String(), &request.VerifyPaymentRequest{Status: "verified"})
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = env.svc.Payment.Verify(ctx, identityOf(admin), p.ID.String(), &request.VerifyPaymentRequest{Status: "approved"})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = env.svc.Payment.Verify(ctx, identityOf(admin), uuid.NewString(), &request.VerifyPaymentRequest{Status: "verified"})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	payments, err := env.svc.Payment.ListForAppointment(ctx, identityOf(owner), a.ID.String())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, entity.PaymentPendingVerification, payments[0].Status)
}

func TestListPayments(t *testing.T) {
	env := newTestEnv(t)
	assistant := env.addUser(entity.RoleAssistant)
	owner := env.addUser(entity.RoleCustomer)
	stranger := env.addUser(entity.RoleCustomer)
	a := env.addAppointment(owner, "2025-12-25", "2:00 PM", entity.AppointmentStatusPending)
	env.addPayment(a, owner, 1000, "R-1")
	env.addPayment(a, owner, 2000, "R-2")
	ctx := context.Background()

	all, err := env.svc.Payment.List(ctx, identityOf(assistant), &request.ListPaymentsRequest{Status: "pending_verification"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Pagination.Total)

	_, err = env.svc.Payment.List(ctx, identityOf(owner), &request.ListPaymentsRequest{})
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = env.svc.Payment.List(ctx, identityOf(assistant), &request.ListPaymentsRequest{Status: "lost"})
	assert.ErrorIs(t, err, utils.ErrInvalidStatus)

	staffView, err := env.svc.Payment.ListForAppointment(ctx, identityOf(assistant), a.ID.String())
	require.NoError(t, err)
	assert.Len(t, staffView, 2)

	_, err = env.svc.Payment.ListForAppointment(ctx, identityOf(stranger), a.ID.String())
	assert.ErrorIs(t, err, utils.ErrForbidden)
}
