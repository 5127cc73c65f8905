package adaptor

import (
	"net"
	"net/http"
	"strings"
	"time"

	"catering-booking/internal/dto/request"
	"catering-booking/internal/dto/response"
	"catering-booking/internal/usecase"
	"catering-booking/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service      usecase.AuthService
	secureCookie bool
	log          *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, config *utils.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		secureCookie: strings.HasPrefix(config.App.BaseURL, "https://"),
		log:          log.With(zap.String("handler", "auth")),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), &req, sessionMeta(r))
	if err != nil {
		handleServiceError(h.log, w, err, "register")
		return
	}

	h.setSessionCookie(w, resp)
	utils.ResponseCreated(w, "Registration successful", resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), &req, sessionMeta(r))
	if err != nil {
		handleServiceError(h.log, w, err, "login")
		return
	}

	h.setSessionCookie(w, resp)
	utils.ResponseSuccess(w, "Login successful", resp)
}

// Logout handles POST /api/auth/logout (protected)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := utils.GetTokenFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		handleServiceError(h.log, w, err, "logout")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     utils.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	utils.ResponseSuccess(w, "Logout successful", nil)
}

// Me handles GET /api/auth/me (protected)
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), identity)
	if err != nil {
		handleServiceError(h.log, w, err, "get current user")
		return
	}

	utils.ResponseSuccess(w, "success", user)
}

// CreateStaff handles POST /api/admin/users (admin only)
func (h *AuthHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.CreateStaffRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.CreateStaff(r.Context(), identity, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create staff account")
		return
	}

	utils.ResponseCreated(w, "Staff account created", user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, resp *response.AuthResponse) {
	if resp == nil || resp.Token == "" {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     utils.SessionCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		MaxAge:   int(time.Until(resp.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionMeta(r *http.Request) request.SessionMeta {
	// RealIP middleware has already rewritten RemoteAddr.
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return request.SessionMeta{
		UserAgent: r.UserAgent(),
		IPAddress: ip,
	}
}
