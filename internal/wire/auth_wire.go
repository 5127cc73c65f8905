package wire

import (
	"catering-booking/internal/adaptor"
	"catering-booking/internal/data/repository"
	"catering-booking/pkg/middleware"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	userHandler *adaptor.UserHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/login", authHandler.Login)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(authn(repo, log))

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(authn(repo, log))
		r.Use(middleware.Admin(log))

		// POST /api/admin/users - Create admin or assistant account
		r.Post("/", authHandler.CreateStaff)

		// GET /api/admin/users - List accounts, optionally by role
		r.Get("/", userHandler.GetAllUsers)

		// PATCH /api/admin/users/{id}/active - Enable or disable an account
		r.Patch("/{id}/active", userHandler.SetActive)
	})
}
