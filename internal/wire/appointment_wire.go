package wire

import (
	"catering-booking/internal/adaptor"
	"catering-booking/internal/data/repository"
	"catering-booking/pkg/middleware"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAppointment(
	r chi.Router,
	appointmentHandler *adaptor.AppointmentHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(authn(repo, log))

		customer := r.With(middleware.Customer(log))

		// POST /api/appointments - Book an event (Idempotency-Key header supported)
		customer.Post("/api/appointments", appointmentHandler.CreateAppointment)

		// GET /api/appointments - Own booking history
		customer.Get("/api/appointments", appointmentHandler.ListMyAppointments)

		// POST /api/appointments/{id}/cancel - Cancel own booking
		customer.Post("/api/appointments/{id}/cancel", appointmentHandler.CancelMyAppointment)

		// GET /api/appointments/{id} - Owner or staff
		r.Get("/api/appointments/{id}", appointmentHandler.GetAppointment)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/appointments", func(r chi.Router) {
		r.Use(authn(repo, log))
		r.Use(middleware.Staff(log))

		r.Get("/", appointmentHandler.ListAppointments)
		r.Post("/", appointmentHandler.AdminCreateAppointment)
		r.Get("/{id}", appointmentHandler.GetAppointment)

		// PATCH /api/admin/appointments/{id}/status - Admin only
		r.With(middleware.Admin(log)).Patch("/{id}/status", appointmentHandler.UpdateStatus)
	})
}
