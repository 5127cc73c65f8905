package adaptor

import (
	"net/http"
	"strings"

	"catering-booking/internal/dto/request"
	"catering-booking/internal/usecase"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AppointmentHandler struct {
	service usecase.AppointmentService
	log     *zap.Logger
}

func NewAppointmentHandler(service usecase.AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log.With(zap.String("handler", "appointment")),
	}
}

// CreateAppointment handles POST /api/appointments (customer)
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.CreateAppointmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	appointment, err := h.service.CreateAppointment(r.Context(), identity, &req, idempotencyKey(r))
	if err != nil {
		handleServiceError(h.log, w, err, "create appointment")
		return
	}

	utils.ResponseCreated(w, "Appointment created", appointment)
}

// ListMyAppointments handles GET /api/appointments (customer)
func (h *AppointmentHandler) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := paginationFromQuery(r)

	appointments, err := h.service.ListMyAppointments(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "list appointments")
		return
	}

	utils.ResponseSuccess(w, "success", appointments)
}

// GetAppointment handles GET /api/appointments/{id} and GET /api/admin/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	appointment, err := h.service.GetAppointment(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get appointment")
		return
	}

	utils.ResponseSuccess(w, "success", appointment)
}

// CancelMyAppointment handles POST /api/appointments/{id}/cancel (customer)
func (h *AppointmentHandler) CancelMyAppointment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	appointment, err := h.service.CancelMyAppointment(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "cancel appointment")
		return
	}

	utils.ResponseSuccess(w, "Appointment cancelled", appointment)
}

// ==================== ADMIN METHODS ====================

// AdminCreateAppointment handles POST /api/admin/appointments (staff)
func (h *AppointmentHandler) AdminCreateAppointment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.AdminCreateAppointmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	appointment, err := h.service.AdminCreateAppointment(r.Context(), identity, &req, idempotencyKey(r))
	if err != nil {
		handleServiceError(h.log, w, err, "create appointment")
		return
	}

	utils.ResponseCreated(w, "Appointment created", appointment)
}

// ListAppointments handles GET /api/admin/appointments (staff)
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := request.ListAppointmentsRequest{
		PaginatedRequest: paginationFromQuery(r),
		Status:           strings.TrimSpace(query.Get("status")),
		Date:             strings.TrimSpace(query.Get("date")),
	}

	appointments, err := h.service.ListAppointments(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "list appointments")
		return
	}

	utils.ResponseSuccess(w, "success", appointments)
}

// UpdateStatus handles PATCH /api/admin/appointments/{id}/status (admin only)
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.UpdateStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	appointment, err := h.service.UpdateStatus(r.Context(), identity, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "update appointment status")
		return
	}

	utils.ResponseSuccess(w, "Appointment status updated", appointment)
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyHeader))
}
