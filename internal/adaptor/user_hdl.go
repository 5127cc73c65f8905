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

// UserHandler serves account management for admins.
type UserHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewUserHandler(service usecase.AuthService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With(zap.String("handler", "user")),
	}
}

// GetAllUsers handles GET /api/admin/users?role=assistant (admin only)
func (h *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := request.ListUsersRequest{
		PaginatedRequest: paginationFromQuery(r),
		Role:             strings.TrimSpace(r.URL.Query().Get("role")),
	}

	users, err := h.service.ListUsers(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "list users")
		return
	}

	utils.ResponseSuccess(w, "Users retrieved successfully", users)
}

// SetActive handles PATCH /api/admin/users/{id}/active (admin only)
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.SetUserActiveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.SetUserActive(r.Context(), identity, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "update user")
		return
	}

	utils.ResponseSuccess(w, "User updated successfully", user)
}
