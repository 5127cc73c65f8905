package wire

import (
	"catering-booking/internal/adaptor"
	"catering-booking/internal/data/repository"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireNotification(
	r chi.Router,
	notificationHandler *adaptor.NotificationHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	// Every route is scoped to the caller's own notifications.
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authn(repo, log))

		r.Get("/", notificationHandler.List)
		r.Patch("/read-all", notificationHandler.MarkAllRead)
		r.Patch("/{id}/read", notificationHandler.MarkRead)
		r.Delete("/{id}", notificationHandler.Delete)
	})
}
