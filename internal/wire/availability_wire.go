package wire

import (
	"catering-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func wireAvailability(r chi.Router, availabilityHandler *adaptor.AvailabilityHandler) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/availability?date=YYYY-MM-DD - Slots for one day, never cached
	r.With(chimw.NoCache).Get("/api/availability", availabilityHandler.GetAvailability)
}
