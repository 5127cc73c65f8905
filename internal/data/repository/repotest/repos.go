package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"

	"github.com/google/uuid"
)

// ---- users ----

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	err := r.s.begin("user.Create", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.data.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user %s: %w", u.Email, repository.ErrDuplicate)
		}
	}
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	err := r.s.begin("user.FindByID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	err := r.s.begin("user.FindByEmail", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) FindActiveStaff(_ context.Context) ([]*entity.User, error) {
	err := r.s.begin("user.FindActiveStaff", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []*entity.User
	for _, u := range r.s.data.users {
		if u.IsActive && u.Role.IsStaff() {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *userRepo) matching(role entity.UserRole) []*entity.User {
	var out []*entity.User
	for _, u := range r.s.data.users {
		if role == "" || u.Role == role {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *userRepo) FindAll(_ context.Context, role entity.UserRole, limit, offset int) ([]*entity.User, error) {
	err := r.s.begin("user.FindAll", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return page(r.matching(role), limit, offset), nil
}

func (r *userRepo) CountAll(_ context.Context, role entity.UserRole) (int64, error) {
	err := r.s.begin("user.CountAll", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(r.matching(role))), nil
}

func (r *userRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (*entity.User, error) {
	err := r.s.begin("user.SetActive", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, nil
	}
	u.IsActive = active
	u.UpdatedAt = time.Now()
	r.s.data.users[id] = u
	return &u, nil
}

// ---- sessions ----

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(_ context.Context, session *entity.Session) error {
	err := r.s.begin("session.Create", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	r.s.data.sessions[session.Token] = *session
	return nil
}

func (r *sessionRepo) FindValidSession(_ context.Context, token uuid.UUID) (*entity.Session, error) {
	err := r.s.begin("session.FindValidSession", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	session, ok := r.s.data.sessions[token]
	if !ok || !session.IsValid(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

func (r *sessionRepo) Revoke(_ context.Context, token uuid.UUID) error {
	err := r.s.begin("session.Revoke", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	session, ok := r.s.data.sessions[token]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	now := time.Now()
	session.RevokedAt = &now
	r.s.data.sessions[token] = session
	return nil
}

// ---- appointments ----

type appointmentRepo struct{ s *Store }

// must be called with mu held
func (r *appointmentRepo) slotTaken(except uuid.UUID, date time.Time, slot string) bool {
	for _, a := range r.s.data.appointments {
		if a.ID != except && a.Status.IsActive() && dateKey(a.EventDate) == dateKey(date) && a.EventTime == slot {
			return true
		}
	}
	return false
}

func (r *appointmentRepo) Create(_ context.Context, a *entity.Appointment) error {
	err := r.s.begin("appointment.Create", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	if a.Status.IsActive() && r.slotTaken(a.ID, a.EventDate, a.EventTime) {
		return fmt.Errorf("create appointment on %s %s: %w", dateKey(a.EventDate), a.EventTime, repository.ErrSlotTaken)
	}
	r.s.data.appointments[a.ID] = *a
	return nil
}

func (r *appointmentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Appointment, error) {
	err := r.s.begin("appointment.FindByID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	a, ok := r.s.data.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *appointmentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	return r.FindByID(ctx, id)
}

func (r *appointmentRepo) sorted(match func(entity.Appointment) bool, newestFirst bool) []*entity.Appointment {
	var out []*entity.Appointment
	for _, a := range r.s.data.appointments {
		if match(a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			if newestFirst {
				return out[i].EventDate.After(out[j].EventDate)
			}
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *appointmentRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Appointment, error) {
	err := r.s.begin("appointment.FindByUserID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	all := r.sorted(func(a entity.Appointment) bool { return a.OwnedBy(userID) }, true)
	return page(all, limit, offset), nil
}

func (r *appointmentRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	err := r.s.begin("appointment.CountByUserID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(r.sorted(func(a entity.Appointment) bool { return a.OwnedBy(userID) }, true))), nil
}

func matchFilter(filter entity.AppointmentFilter) func(entity.Appointment) bool {
	return func(a entity.Appointment) bool {
		if filter.Status != "" && a.Status != filter.Status {
			return false
		}
		if filter.EventDate != nil && dateKey(a.EventDate) != dateKey(*filter.EventDate) {
			return false
		}
		return true
	}
}

func (r *appointmentRepo) FindAll(_ context.Context, filter entity.AppointmentFilter, limit, offset int) ([]*entity.Appointment, error) {
	err := r.s.begin("appointment.FindAll", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return page(r.sorted(matchFilter(filter), false), limit, offset), nil
}

func (r *appointmentRepo) Count(_ context.Context, filter entity.AppointmentFilter) (int64, error) {
	err := r.s.begin("appointment.Count", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(r.sorted(matchFilter(filter), false))), nil
}

func (r *appointmentRepo) FindActiveByDate(_ context.Context, date time.Time) ([]*entity.Appointment, error) {
	err := r.s.begin("appointment.FindActiveByDate", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.sorted(func(a entity.Appointment) bool {
		return a.Status.IsActive() && dateKey(a.EventDate) == dateKey(date)
	}, false), nil
}

func (r *appointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.AppointmentStatus, adminNotes *string) error {
	err := r.s.begin("appointment.UpdateStatus", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	a, ok := r.s.data.appointments[id]
	if !ok || a.Status != from {
		return fmt.Errorf("update appointment %s from %s: %w", id.String(), from, repository.ErrStatusChanged)
	}
	if to.IsActive() && r.slotTaken(id, a.EventDate, a.EventTime) {
		return fmt.Errorf("update appointment %s status to %s: %w", id.String(), to, repository.ErrSlotTaken)
	}
	a.Status = to
	if adminNotes != nil {
		notes := *adminNotes
		a.AdminNotes = &notes
	}
	a.UpdatedAt = time.Now()
	r.s.data.appointments[id] = a
	return nil
}

func (r *appointmentRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	err := r.s.begin("appointment.UpdatePaymentStatus", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	a, ok := r.s.data.appointments[id]
	if !ok {
		return notFound("appointment", id)
	}
	a.PaymentStatus = status
	a.UpdatedAt = time.Now()
	r.s.data.appointments[id] = a
	return nil
}

// ---- tasting sessions ----

type tastingRepo struct{ s *Store }

func (r *tastingRepo) Create(_ context.Context, t *entity.TastingSession) error {
	err := r.s.begin("tasting.Create", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.data.tastings {
		if existing.Token == t.Token || existing.AppointmentID == t.AppointmentID {
			return fmt.Errorf("create tasting session for appointment %s: %w", t.AppointmentID.String(), repository.ErrDuplicate)
		}
	}
	r.s.data.tastings[t.ID] = cloneTasting(*t)
	return nil
}

func (r *tastingRepo) find(op string, match func(entity.TastingSession) bool) (*entity.TastingSession, error) {
	err := r.s.begin(op, false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, t := range r.s.data.tastings {
		if match(t) {
			c := cloneTasting(t)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *tastingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.TastingSession, error) {
	return r.find("tasting.FindByID", func(t entity.TastingSession) bool { return t.ID == id })
}

func (r *tastingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.TastingSession, error) {
	return r.FindByID(ctx, id)
}

func (r *tastingRepo) FindByToken(_ context.Context, token string) (*entity.TastingSession, error) {
	return r.find("tasting.FindByToken", func(t entity.TastingSession) bool { return t.Token == token })
}

func (r *tastingRepo) FindByTokenForUpdate(ctx context.Context, token string) (*entity.TastingSession, error) {
	return r.FindByToken(ctx, token)
}

func (r *tastingRepo) FindByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*entity.TastingSession, error) {
	return r.find("tasting.FindByAppointmentID", func(t entity.TastingSession) bool { return t.AppointmentID == appointmentID })
}

func (r *tastingRepo) filtered(status entity.TastingStatus) []*entity.TastingSession {
	var out []*entity.TastingSession
	for _, t := range r.s.data.tastings {
		if status == "" || t.Status == status {
			c := cloneTasting(t)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProposedDate.Equal(out[j].ProposedDate) {
			return out[i].ProposedDate.Before(out[j].ProposedDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *tastingRepo) FindAll(_ context.Context, status entity.TastingStatus, limit, offset int) ([]*entity.TastingSession, error) {
	err := r.s.begin("tasting.FindAll", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return page(r.filtered(status), limit, offset), nil
}

func (r *tastingRepo) Count(_ context.Context, status entity.TastingStatus) (int64, error) {
	err := r.s.begin("tasting.Count", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(r.filtered(status))), nil
}

func (r *tastingRepo) Update(_ context.Context, t *entity.TastingSession) error {
	err := r.s.begin("tasting.Update", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.data.tastings[t.ID]
	if !ok {
		return notFound("tasting session", t.ID)
	}
	updated := cloneTasting(*t)
	updated.Token = existing.Token
	updated.AppointmentID = existing.AppointmentID
	updated.CreatedAt = existing.CreatedAt
	r.s.data.tastings[t.ID] = updated
	return nil
}

func (r *tastingRepo) FindMismatchedPairs(_ context.Context, afterID uuid.UUID, limit int) ([]entity.TastingPair, error) {
	err := r.s.begin("tasting.FindMismatchedPairs", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	after := afterID.String()
	var pairs []entity.TastingPair
	for _, t := range r.s.data.tastings {
		a, ok := r.s.data.appointments[t.AppointmentID]
		if !ok || t.ID.String() <= after || a.Status == t.Status.AppointmentStatus() {
			continue
		}
		switch a.Status {
		case entity.AppointmentStatusPendingTastingConfirmation,
			entity.AppointmentStatusTastingConfirmed,
			entity.AppointmentStatusTastingRescheduleRequested:
			pairs = append(pairs, entity.TastingPair{
				SessionID:         t.ID,
				AppointmentID:     a.ID,
				SessionStatus:     t.Status,
				AppointmentStatus: a.Status,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].SessionID.String() < pairs[j].SessionID.String() })
	return page(pairs, limit, 0), nil
}

// ---- payments ----

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(_ context.Context, p *entity.PaymentTransaction) error {
	err := r.s.begin("payment.Create", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.data.payments {
		if existing.ReferenceNumber == p.ReferenceNumber && existing.PaymentMethod == p.PaymentMethod {
			return fmt.Errorf("create payment %s: %w", p.ReferenceNumber, repository.ErrDuplicate)
		}
	}
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.PaymentTransaction, error) {
	err := r.s.begin("payment.FindByID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *paymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error) {
	return r.FindByID(ctx, id)
}

func (r *paymentRepo) collect(match func(entity.PaymentTransaction) bool, newestFirst bool) []*entity.PaymentTransaction {
	var out []*entity.PaymentTransaction
	for _, p := range r.s.data.payments {
		if match(p) {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *paymentRepo) FindByAppointmentID(_ context.Context, appointmentID uuid.UUID) ([]*entity.PaymentTransaction, error) {
	err := r.s.begin("payment.FindByAppointmentID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.collect(func(p entity.PaymentTransaction) bool { return p.AppointmentID == appointmentID }, false), nil
}

func (r *paymentRepo) FindAll(_ context.Context, status entity.PaymentTransactionStatus, limit, offset int) ([]*entity.PaymentTransaction, error) {
	err := r.s.begin("payment.FindAll", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	all := r.collect(func(p entity.PaymentTransaction) bool { return status == "" || p.Status == status }, true)
	return page(all, limit, offset), nil
}

func (r *paymentRepo) Count(_ context.Context, status entity.PaymentTransactionStatus) (int64, error) {
	err := r.s.begin("payment.Count", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(r.collect(func(p entity.PaymentTransaction) bool { return status == "" || p.Status == status }, true))), nil
}

func (r *paymentRepo) UpdateStatus(_ context.Context, p *entity.PaymentTransaction) error {
	err := r.s.begin("payment.UpdateStatus", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.data.payments[p.ID]
	if !ok {
		return notFound("payment", p.ID)
	}
	existing.Status = p.Status
	existing.VerifiedBy = p.VerifiedBy
	existing.Notes = p.Notes
	existing.UpdatedAt = p.UpdatedAt
	r.s.data.payments[p.ID] = existing
	return nil
}

func (r *paymentRepo) SumVerified(_ context.Context, appointmentID uuid.UUID) (float64, error) {
	err := r.s.begin("payment.SumVerified", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, p := range r.s.data.payments {
		if p.AppointmentID == appointmentID && p.Status == entity.PaymentVerified {
			total += p.Amount
		}
	}
	return total, nil
}

// ---- notifications ----

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *entity.Notification) error {
	err := r.s.begin("notification.Create", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	r.s.data.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Notification, error) {
	err := r.s.begin("notification.FindByID", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	n, ok := r.s.data.notifications[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r *notificationRepo) byRecipient(recipientID uuid.UUID, unreadOnly bool) []*entity.Notification {
	var out []*entity.Notification
	for _, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *notificationRepo) FindByRecipient(_ context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	err := r.s.begin("notification.FindByRecipient", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return page(r.byRecipient(recipientID, unreadOnly), limit, offset), nil
}

func (r *notificationRepo) CountByRecipient(_ context.Context, recipientID uuid.UUID, unreadOnly bool) (int64, error) {
	err := r.s.begin("notification.CountByRecipient", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(r.byRecipient(recipientID, unreadOnly))), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id, recipientID uuid.UUID) (bool, error) {
	err := r.s.begin("notification.MarkRead", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	n, ok := r.s.data.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return false, nil
	}
	n.IsRead = true
	r.s.data.notifications[id] = n
	return true, nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, recipientID uuid.UUID) (int64, error) {
	err := r.s.begin("notification.MarkAllRead", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var count int64
	for id, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			r.s.data.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) Delete(_ context.Context, id, recipientID uuid.UUID) (bool, error) {
	err := r.s.begin("notification.Delete", true)
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	n, ok := r.s.data.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return false, nil
	}
	delete(r.s.data.notifications, id)
	return true, nil
}

// ---- idempotency ----

type idempotencyRepo struct{ s *Store }

func (r *idempotencyRepo) Reserve(_ context.Context, key string) (string, bool, error) {
	err := r.s.begin("idempotency.Reserve", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	if existing, ok := r.s.idem[key]; ok {
		return existing, false, nil
	}
	r.s.idem[key] = "pending"
	return "", true, nil
}

func (r *idempotencyRepo) Complete(_ context.Context, key, appointmentID string) error {
	err := r.s.begin("idempotency.Complete", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	r.s.idem[key] = appointmentID
	return nil
}

func (r *idempotencyRepo) Release(_ context.Context, key string) error {
	err := r.s.begin("idempotency.Release", false)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	delete(r.s.idem, key)
	return nil
}
