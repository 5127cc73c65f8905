package adaptor

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"catering-booking/internal/dto/request"
	"catering-booking/internal/usecase"
	"catering-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth         *AuthHandler
	Appointment  *AppointmentHandler
	Availability *AvailabilityHandler
	Tasting      *TastingHandler
	Payment      *PaymentHandler
	Notification *NotificationHandler
	User         *UserHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(service.Auth, config, log),
		Appointment:  NewAppointmentHandler(service.Appointment, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
		Tasting:      NewTastingHandler(service.Tasting, config, log),
		Payment:      NewPaymentHandler(service.Payment, log),
		Notification: NewNotificationHandler(service.Notification, log),
		User:         NewUserHandler(service.Auth, log),
	}
}

// IdempotencyHeader lets clients retry appointment creation safely.
const IdempotencyHeader = "Idempotency-Key"

// errorStatus maps the service error kinds to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, utils.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, utils.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the JSON error envelope for err.
// 5xx details are logged, never returned.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	log.Warn(operation+" rejected",
		zap.Error(err),
		zap.String("operation", operation),
		zap.Int("status", code))
	utils.ResponseJSON(w, code, false, utils.PublicMessage(err), nil, nil)
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}

	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}

	return true
}

// isJSON reports whether the request body is declared as JSON.
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// requireIdentity returns the caller set by the auth middleware.
func requireIdentity(w http.ResponseWriter, r *http.Request) (utils.Identity, bool) {
	identity, ok := utils.GetIdentity(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return utils.Identity{}, false
	}
	return identity, true
}

func paginationFromQuery(r *http.Request) request.PaginatedRequest {
	query := r.URL.Query()
	return request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}
