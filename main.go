// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catering-booking/cmd"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/usecase"
	"catering-booking/internal/wire"
	"catering-booking/internal/worker"
	"catering-booking/pkg/broker"
	"catering-booking/pkg/cache"
	"catering-booking/pkg/database"
	"catering-booking/pkg/mailer"
	"catering-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Application stopped with error: %v", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run() error {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Redis backs idempotency keys; without it creation runs unprotected
	rdb, err := cache.NewRedis(config.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, idempotency keys disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info("Redis connected successfully")
	}

	// RabbitMQ carries domain events; without it events are only logged
	var events interface {
		usecase.EventPublisher
		Close() error
	}
	if config.RabbitMQ.URL != "" {
		rabbit, err := broker.NewRabbitMQ(config.RabbitMQ.URL, config.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events will not be published", zap.Error(err))
			events = broker.NewNoop(logger)
		} else {
			events = rabbit
			logger.Info("RabbitMQ connected successfully")
		}
	} else {
		events = broker.NewNoop(logger)
	}
	defer events.Close()

	mail := mailer.New(config.Email, logger)

	// Initialize all repositories
	repos := repository.NewRepository(db, rdb, config.Redis.IdempotencyTTL, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, events, mail, config, logger)

	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := app.Service.Auth.EnsureBootstrapAdmin(bootstrapCtx); err != nil {
		logger.Error("Failed to create bootstrap admin", zap.Error(err))
	}
	cancel()

	// Start server and background worker
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return cmd.APIServer(gctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger)
	})

	reconciler := worker.NewReconciler(app.Service.Tasting, config.Worker.ReconcileInterval, logger)
	g.Go(func() error {
		return reconciler.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Application stopped")
	return nil
}
