package middleware

import (
	"net/http"

	"catering-booking/internal/data/repository"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthSession resolves the caller from the session token in the
// Authorization header or the session cookie. Tokens are never logged.
func AuthSession(sessionRepo repository.SessionRepository, userRepo repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.With(zap.String("middleware", "auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := utils.BearerToken(r)
			if token == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			tokenUUID, err := uuid.Parse(token)
			if err != nil {
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			// Find valid session
			session, err := sessionRepo.FindValidSession(r.Context(), tokenUUID)
			if err != nil {
				logger.Error("Failed to validate session", zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if session == nil {
				logger.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			// Role comes from the account, not the session
			user, err := userRepo.FindByID(r.Context(), session.UserID)
			if err != nil {
				logger.Error("Failed to load session user",
					zap.Error(err), zap.String("user_id", session.UserID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if user == nil || !user.IsActive {
				logger.Warn("Session of missing or inactive user",
					zap.String("user_id", session.UserID.String()))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := utils.SetIdentity(r.Context(), utils.Identity{
				UserID: user.ID,
				Role:   string(user.Role),
			})
			ctx = utils.SetTokenContext(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through when the caller has one of roles.
// Must run after AuthSession.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := utils.GetIdentity(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			if !allowed[identity.Role] {
				logger.Warn("Role check failed",
					zap.String("user_id", identity.UserID.String()),
					zap.String("role", identity.Role),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Staff allows admins and assistants.
func Staff(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, utils.RoleAdmin, utils.RoleAssistant)
}

// Admin allows admins only.
func Admin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, utils.RoleAdmin)
}

// Customer allows customer accounts only.
func Customer(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, utils.RoleCustomer)
}
