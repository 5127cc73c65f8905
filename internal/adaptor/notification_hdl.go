package adaptor

import (
	"net/http"

	"catering-booking/internal/dto/request"
	"catering-booking/internal/usecase"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service usecase.NotificationService
	log     *zap.Logger
}

func NewNotificationHandler(service usecase.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log.With(zap.String("handler", "notification")),
	}
}

// List handles GET /api/notifications (protected)
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := request.ListNotificationsRequest{
		PaginatedRequest: paginationFromQuery(r),
		UnreadOnly:       utils.ParseBool(r.URL.Query().Get("unread_only")),
	}

	notifications, err := h.service.List(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "list notifications")
		return
	}

	utils.ResponseSuccess(w, "success", notifications)
}

// MarkRead handles PATCH /api/notifications/{id}/read (protected)
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		handleServiceError(h.log, w, err, "mark notification read")
		return
	}

	utils.ResponseSuccess(w, "Notification marked as read", nil)
}

// MarkAllRead handles PATCH /api/notifications/read-all (protected)
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), identity)
	if err != nil {
		handleServiceError(h.log, w, err, "mark all notifications read")
		return
	}

	utils.ResponseSuccess(w, "Notifications marked as read", map[string]int64{"updated": updated})
}

// Delete handles DELETE /api/notifications/{id} (protected)
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		handleServiceError(h.log, w, err, "delete notification")
		return
	}

	utils.ResponseSuccess(w, "Notification deleted", nil)
}
