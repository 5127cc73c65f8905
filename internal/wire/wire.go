package wire

import (
	"net/http"

	"catering-booking/internal/adaptor"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/usecase"
	"catering-booking/pkg/middleware"
	"catering-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired router and the services behind it.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes.
func Wiring(
	repo *repository.Repository,
	events usecase.EventPublisher,
	mail usecase.Mailer,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, events, mail, config, logger)
	handler := adaptor.NewHandler(service, config, logger)

	router := setupRouter(handler, repo, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))
	if config.App.RequestTimeout > 0 {
		r.Use(chimw.Timeout(config.App.RequestTimeout))
	}

	// Apply routes
	wireAuth(r, handler.Auth, handler.User, repo, config, logger)
	wireAvailability(r, handler.Availability)
	wireTasting(r, handler.Tasting, repo, config, logger)
	wireAppointment(r, handler.Appointment, repo, config, logger)
	wirePayment(r, handler.Payment, repo, config, logger)
	wireNotification(r, handler.Notification, repo, config, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

func authn(repo *repository.Repository, log *zap.Logger) func(http.Handler) http.Handler {
	return middleware.AuthSession(repo.Session, repo.User, log)
}
