package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/data/repository/repotest"
	"catering-booking/internal/dto/request"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, routingKey string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := v.(Event); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	sent chan sentMail
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan sentMail, 16)}
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	select {
	case m.sent <- sentMail{to: to, subject: subject, body: htmlBody}:
	default:
	}
	return nil
}

func (m *recordingMailer) wait(t *testing.T) sentMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("no email sent")
		return sentMail{}
	}
}

// fixedNow is the clock every service test runs at.
var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{
			BaseURL:     "http://api.test",
			FrontendURL: "http://web.test",
		},
		Session: utils.SessionConfig{ExpiryHours: 24},
		Booking: utils.BookingConfig{
			TastingEventTypes:  []string{"wedding", "debut"},
			TastingLeadDays:    14,
			DefaultTastingTime: "10:00 AM",
		},
		Retry: utils.RetryConfig{Attempts: 2, BaseDelay: time.Millisecond},
	}
}

type testEnv struct {
	store  *repotest.Store
	repo   *repository.Repository
	events *recordingPublisher
	mail   *recordingMailer
	logs   *observer.ObservedLogs
	config *utils.Config
	svc    *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	store := repotest.New()

	env := &testEnv{
		store:  store,
		repo:   store.Repository(),
		events: &recordingPublisher{},
		mail:   newRecordingMailer(),
		logs:   logs,
		config: testConfig(),
	}
	env.svc = NewService(env.repo, env.events, env.mail, env.config, zap.New(core))

	clock := func() time.Time { return fixedNow }
	env.svc.Appointment.(*appointmentService).now = clock
	env.svc.Tasting.(*tastingService).now = clock

	return env
}

func (e *testEnv) addUser(role entity.UserRole) *entity.User {
	id := uuid.New()
	u := &entity.User{
		Base:     entity.Base{ID: id, CreatedAt: fixedNow, UpdatedAt: fixedNow},
		Name:     "User " + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Role:     role,
		IsActive: true,
	}
	e.store.AddUser(u)
	return u
}

func (e *testEnv) addAppointment(owner *entity.User, date, slot string, status entity.AppointmentStatus) *entity.Appointment {
	eventDate, err := utils.ParseDate(date)
	if err != nil {
		panic(err)
	}
	a := &entity.Appointment{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: fixedNow, UpdatedAt: fixedNow},
		EventType:     entity.EventTypeWedding,
		EventDate:     eventDate,
		EventTime:     slot,
		GuestCount:    120,
		VenueAddress:  "Grand Ballroom, Makati",
		ContactName:   "Maria Santos",
		ContactEmail:  "maria@example.com",
		ContactPhone:  "09171234567",
		TotalAmount:   10000,
		DownPayment:   3000,
		BookingSource: entity.BookingSourceCustomer,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Status:        status,
	}
	if owner != nil {
		a.UserID = &owner.ID
	}
	e.store.AddAppointment(a)
	return a
}

func (e *testEnv) addTasting(a *entity.Appointment, token string, status entity.TastingStatus) *entity.TastingSession {
	session := &entity.TastingSession{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: fixedNow, UpdatedAt: fixedNow},
		AppointmentID: a.ID,
		Token:         token,
		ProposedDate:  a.EventDate.AddDate(0, 0, -14),
		ProposedTime:  "10:00 AM",
		Status:        status,
	}
	e.store.AddTasting(session)
	return session
}

func (e *testEnv) notificationsFor(userID uuid.UUID) []entity.Notification {
	var out []entity.Notification
	for _, n := range e.store.Notifications() {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out
}

func identityOf(u *entity.User) utils.Identity {
	return utils.Identity{UserID: u.ID, Role: string(u.Role)}
}

func bookingRequest(eventType, date, slot string) *request.CreateAppointmentRequest {
	return &request.CreateAppointmentRequest{
		EventType:    eventType,
		EventDate:    date,
		EventTime:    slot,
		GuestCount:   80,
		VenueAddress: "Garden Pavilion, Quezon City",
		ContactName:  "Juan dela Cruz",
		ContactEmail: "juan@example.com",
		ContactPhone: "09181234567",
		TotalAmount:  50000,
		DownPayment:  15000,
	}
}

// requireNoSecret fails when any log entry mentions secret.
func requireNoSecret(t *testing.T, logs *observer.ObservedLogs, secret string) {
	t.Helper()
	require.NotEmpty(t, secret)
	for _, entry := range logs.All() {
		require.NotContains(t, entry.Message, secret)
		for key, value := range entry.ContextMap() {
			require.NotContains(t, fmt.Sprint(value), secret, "log field %q of %q", key, entry.Message)
		}
	}
}
