// Package repotest provides an in-memory repository.Repository for tests.
//
// The store enforces the constraints the SQL schema enforces: one active
// appointment per (event_date, event_time), unique tasting tokens and
// compare-and-swap status updates. WithinTx serialises transactions and
// restores a snapshot when fn returns an error.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
)

type state struct {
	users         map[uuid.UUID]entity.User
	sessions      map[uuid.UUID]entity.Session
	appointments  map[uuid.UUID]entity.Appointment
	tastings      map[uuid.UUID]entity.TastingSession
	payments      map[uuid.UUID]entity.PaymentTransaction
	notifications map[uuid.UUID]entity.Notification
}

func newState() state {
	return state{
		users:         map[uuid.UUID]entity.User{},
		sessions:      map[uuid.UUID]entity.Session{},
		appointments:  map[uuid.UUID]entity.Appointment{},
		tastings:      map[uuid.UUID]entity.TastingSession{},
		payments:      map[uuid.UUID]entity.PaymentTransaction{},
		notifications: map[uuid.UUID]entity.Notification{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s state) clone() state {
	return state{
		users:         cloneMap(s.users),
		sessions:      cloneMap(s.sessions),
		appointments:  cloneMap(s.appointments),
		tastings:      cloneMap(s.tastings),
		payments:      cloneMap(s.payments),
		notifications: cloneMap(s.notifications),
	}
}

type failure struct {
	err   error
	times int
}

// Store is the backing state shared by every repository it hands out.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	data     state
	idem     map[string]string
	failures map[string]*failure
	writes   int
}

func New() *Store {
	return &Store{
		data:     newState(),
		idem:     map[string]string{},
		failures: map[string]*failure{},
	}
}

// Repository returns a repository.Repository backed by s.
func (s *Store) Repository() *repository.Repository {
	repo := &repository.Repository{
		User:         &userRepo{s},
		Session:      &sessionRepo{s},
		Appointment:  &appointmentRepo{s},
		Tasting:      &tastingRepo{s},
		Payment:      &paymentRepo{s},
		Notification: &notificationRepo{s},
		Idempotency:  &idempotencyRepo{s},
	}
	repo.Tx = &txManager{store: s, repo: repo}
	return repo
}

// Fail makes the named operation, e.g. "appointment.UpdateStatus", return err.
// times <= 0 fails every call until Reset.
func (s *Store) Fail(op string, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &failure{err: err, times: times}
}

// Reset clears injected failures.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]*failure{}
}

// Writes counts committed and uncommitted mutating calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// must be called with mu held
func (s *Store) injected(op string) error {
	f, ok := s.failures[op]
	if !ok {
		return nil
	}
	if f.times > 0 {
		f.times--
		if f.times == 0 {
			delete(s.failures, op)
		}
	}
	return f.err
}

// begin locks the store and returns the injected failure for op, if any.
// The caller must unlock mu.
func (s *Store) begin(op string, write bool) error {
	s.mu.Lock()
	if err := s.injected(op); err != nil {
		return err
	}
	if write {
		s.writes++
	}
	return nil
}

type txManager struct {
	store *Store
	repo  *repository.Repository
}

func (m *txManager) WithinTx(ctx context.Context, fn func(repo *repository.Repository) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.Lock()
	if err := m.store.injected("tx.Begin"); err != nil {
		m.store.mu.Unlock()
		return err
	}
	snapshot := m.store.data.clone()
	m.store.mu.Unlock()

	txRepo := *m.repo
	txRepo.Tx = nestedTx{repo: &txRepo}

	if err := fn(&txRepo); err != nil {
		m.store.mu.Lock()
		m.store.data = snapshot
		m.store.mu.Unlock()
		return err
	}
	return nil
}

type nestedTx struct {
	repo *repository.Repository
}

func (n nestedTx) WithinTx(_ context.Context, fn func(repo *repository.Repository) error) error {
	return fn(n.repo)
}

func dateKey(t time.Time) string {
	return t.Format(utils.DateLayout)
}

// ---- seeding helpers ----

func (s *Store) AddUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = *u
}

func (s *Store) AddAppointment(a *entity.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.appointments[a.ID] = *a
}

func (s *Store) AddTasting(t *entity.TastingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.tastings[t.ID] = cloneTasting(*t)
}

func (s *Store) AddPayment(p *entity.PaymentTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.payments[p.ID] = *p
}

func (s *Store) AddNotification(n *entity.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.notifications[n.ID] = *n
}

// Appointment returns a copy of the stored appointment or nil.
func (s *Store) Appointment(id uuid.UUID) *entity.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.appointments[id]
	if !ok {
		return nil
	}
	return &a
}

// Tasting returns a copy of the stored tasting session or nil.
func (s *Store) Tasting(id uuid.UUID) *entity.TastingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.tastings[id]
	if !ok {
		return nil
	}
	c := cloneTasting(t)
	return &c
}

// Notifications returns every stored notification, oldest first.
func (s *Store) Notifications() []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Notification, 0, len(s.data.notifications))
	for _, n := range s.data.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneTasting(t entity.TastingSession) entity.TastingSession {
	if t.ReschedulePreferences != nil {
		p := *t.ReschedulePreferences
		t.ReschedulePreferences = &p
	}
	return t
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s not found", what, id.String())
}
