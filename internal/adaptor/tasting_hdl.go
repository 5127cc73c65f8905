package adaptor

import (
	"html/template"
	"net/http"
	"strings"

	"catering-booking/internal/dto/request"
	"catering-booking/internal/dto/response"
	"catering-booking/internal/usecase"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var tastingPageTmpl = template.Must(template.New("tasting_page").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 560px; margin: 40px auto;">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{with .Tasting}}
  <table>
    <tr><td>Event</td><td>{{.EventType}} on {{.EventDate}}</td></tr>
    <tr><td>Tasting</td><td>{{.ProposedDate}} at {{.ProposedTime}}</td></tr>
  </table>
  {{end}}
  {{if .HomeURL}}<p><a href="{{.HomeURL}}">Back to the website</a></p>{{end}}
</body>
</html>`))

type tastingPage struct {
	Title   string
	Message string
	Tasting *response.PublicTastingResponse
	HomeURL string
}

type TastingHandler struct {
	service     usecase.TastingService
	frontendURL string
	log         *zap.Logger
}

func NewTastingHandler(service usecase.TastingService, config *utils.Config, log *zap.Logger) *TastingHandler {
	return &TastingHandler{
		service:     service,
		frontendURL: config.App.FrontendURL,
		log:         log.With(zap.String("handler", "tasting")),
	}
}

// ConfirmPage handles GET /api/tasting/confirm?token=...&action=confirm (public).
// It is the target of the invitation email link and answers with HTML.
func (h *TastingHandler) ConfirmPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := request.ConfirmTastingRequest{
		Token:  query.Get("token"),
		Action: query.Get("action"),
	}

	page := tastingPage{HomeURL: h.frontendURL}
	code := http.StatusOK

	tasting, err := h.service.Confirm(r.Context(), &req)
	if err != nil {
		code = errorStatus(err)
		page.Title = "We could not confirm your tasting"
		page.Message = utils.PublicMessage(err)
		if code >= http.StatusInternalServerError {
			h.log.Error("Failed to confirm tasting", zap.Error(err))
			page.Message = "Something went wrong on our side. Please try again later."
		} else {
			h.log.Warn("Tasting confirmation rejected", zap.Error(err), zap.Int("status", code))
		}
	} else {
		page.Title = "Your food tasting is confirmed"
		page.Message = "Thank you. We look forward to seeing you."
		page.Tasting = tasting
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := tastingPageTmpl.Execute(w, page); err != nil {
		h.log.Error("Failed to render tasting page", zap.Error(err))
	}
}

// Confirm handles POST /api/tasting/confirm (public). The body is JSON or
// form encoded; token and action may also come in the query string.
func (h *TastingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req request.ConfirmTastingRequest
	if isJSON(r) {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
		req.Token = r.Form.Get("token")
		req.Action = r.Form.Get("action")
		if validationErrors := utils.ValidateStruct(&req); len(validationErrors) > 0 {
			utils.ResponseBadRequest(w, "Validation failed", validationErrors)
			return
		}
	}

	tasting, err := h.service.Confirm(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "confirm tasting")
		return
	}

	utils.ResponseSuccess(w, "Tasting confirmed", tasting)
}

// RequestReschedule handles POST /api/tasting/reschedule (public)
func (h *TastingHandler) RequestReschedule(w http.ResponseWriter, r *http.Request) {
	var req request.RescheduleTastingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tasting, err := h.service.RequestReschedule(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "request tasting reschedule")
		return
	}

	utils.ResponseSuccess(w, "Reschedule request received", tasting)
}

// GetByToken handles GET /api/tasting/{token} (public)
func (h *TastingHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	tasting, err := h.service.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleServiceError(h.log, w, err, "get tasting")
		return
	}

	utils.ResponseSuccess(w, "success", tasting)
}

// ==================== ADMIN METHODS ====================

// List handles GET /api/admin/tastings (staff)
func (h *TastingHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := request.ListTastingsRequest{
		PaginatedRequest: paginationFromQuery(r),
		Status:           strings.TrimSpace(r.URL.Query().Get("status")),
	}

	tastings, err := h.service.List(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "list tastings")
		return
	}

	utils.ResponseSuccess(w, "success", tastings)
}

// Schedule handles POST /api/admin/tastings/{id}/schedule (staff)
func (h *TastingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.ScheduleTastingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tasting, err := h.service.Schedule(r.Context(), identity, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "schedule tasting")
		return
	}

	utils.ResponseSuccess(w, "Tasting scheduled", tasting)
}

// Complete handles PATCH /api/admin/tastings/{id}/complete (staff)
func (h *TastingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	tasting, err := h.service.Complete(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "complete tasting")
		return
	}

	utils.ResponseSuccess(w, "Tasting completed", tasting)
}
