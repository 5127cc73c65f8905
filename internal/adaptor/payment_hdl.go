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

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// Submit handles POST /api/appointments/{id}/payments (customer)
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.CreatePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	payment, err := h.service.Submit(r.Context(), identity, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "submit payment")
		return
	}

	utils.ResponseCreated(w, "Payment submitted for verification", payment)
}

// ListForAppointment handles GET /api/appointments/{id}/payments (owner or staff)
func (h *PaymentHandler) ListForAppointment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListForAppointment(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// ==================== ADMIN METHODS ====================

// List handles GET /api/admin/payments (staff)
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := request.ListPaymentsRequest{
		PaginatedRequest: paginationFromQuery(r),
		Status:           strings.TrimSpace(r.URL.Query().Get("status")),
	}

	payments, err := h.service.List(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// Verify handles PATCH /api/admin/payments/{id}/verify (admin only)
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.VerifyPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Verify(r.Context(), identity, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "verify payment")
		return
	}

	utils.ResponseSuccess(w, "Payment reviewed", result)
}
