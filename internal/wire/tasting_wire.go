package wire

import (
	"catering-booking/internal/adaptor"
	"catering-booking/internal/data/repository"
	"catering-booking/pkg/middleware"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireTasting(
	r chi.Router,
	tastingHandler *adaptor.TastingHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// The capability token in the link is the only credential.
	r.Route("/api/tasting", func(r chi.Router) {
		// GET /api/tasting/confirm - Email link target, answers with HTML
		r.Get("/confirm", tastingHandler.ConfirmPage)
		r.Post("/confirm", tastingHandler.Confirm)
		r.Post("/reschedule", tastingHandler.RequestReschedule)
		r.Get("/{token}", tastingHandler.GetByToken)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/tastings", func(r chi.Router) {
		r.Use(authn(repo, log))
		r.Use(middleware.Staff(log))

		r.Get("/", tastingHandler.List)
		r.Post("/{id}/schedule", tastingHandler.Schedule)
		r.Patch("/{id}/complete", tastingHandler.Complete)
	})
}
