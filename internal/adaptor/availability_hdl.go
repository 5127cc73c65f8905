package adaptor

import (
	"net/http"

	"catering-booking/internal/usecase"
	"catering-booking/pkg/utils"

	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// GetAvailability handles GET /api/availability?date=YYYY-MM-DD (public)
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	// Slots change with every booking, clients and proxies must not cache them.
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")

	availability, err := h.service.GetAvailability(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(h.log, w, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}
