package wire

import (
	"catering-booking/internal/adaptor"
	"catering-booking/internal/data/repository"
	"catering-booking/pkg/middleware"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(authn(repo, log))

		// POST /api/appointments/{id}/payments - Submit proof of payment
		r.With(middleware.Customer(log)).Post("/api/appointments/{id}/payments", paymentHandler.Submit)

		// GET /api/appointments/{id}/payments - Owner or staff
		r.Get("/api/appointments/{id}/payments", paymentHandler.ListForAppointment)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/payments", func(r chi.Router) {
		r.Use(authn(repo, log))
		r.Use(middleware.Staff(log))

		r.Get("/", paymentHandler.List)

		// PATCH /api/admin/payments/{id}/verify - Admin only
		r.With(middleware.Admin(log)).Patch("/{id}/verify", paymentHandler.Verify)
	})
}
