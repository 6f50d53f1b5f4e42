package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/regscout/regscout/internal/api/v1/handlers"
	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/internal/connections"
	"github.com/regscout/regscout/internal/middleware"
	"github.com/regscout/regscout/internal/services"
	"github.com/regscout/regscout/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := logger.For(logger.APP)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(logger.Options{Environment: cfg.Environment})
	log = logger.For(logger.APP)

	svc, err := services.InitializeServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	manager := connections.NewManager(connections.DefaultTimeouts)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(svc, manager, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	closed := manager.CloseAll("server shutting down")
	log.Info().Int("connections", closed).Msg("Closed websocket connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := svc.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close services")
	}

	log.Info().Msg("Server stopped")
}

func setupRouter(svc *services.Services, manager *connections.Manager, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	handlers.RegisterRoutes(r, svc, manager, cfg.RateLimit)
	return r
}
