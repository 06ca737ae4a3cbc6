package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierpress/be-print-dossiers/internal/client"
	"github.com/atelierpress/be-print-dossiers/internal/handler"
	"github.com/atelierpress/be-print-dossiers/internal/platform/config"
	"github.com/atelierpress/be-print-dossiers/internal/platform/database"
	"github.com/atelierpress/be-print-dossiers/internal/platform/events"
	"github.com/atelierpress/be-print-dossiers/internal/platform/logger"
	"github.com/atelierpress/be-print-dossiers/internal/platform/middleware"
	"github.com/atelierpress/be-print-dossiers/internal/repository"
	"github.com/atelierpress/be-print-dossiers/internal/service"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Print Dossiers Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize NATS for notification events. Optional: the service runs
	// without it, dropping notifications.
	var eventsClient *events.Client
	if cfg.NATS.Enabled {
		eventsClient, err = events.Connect(cfg.NATS.URL, cfg.Service.Name)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, notifications disabled")
			eventsClient = nil
		} else {
			defer eventsClient.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}

	// Initialize repositories
	dossierRepo := repository.NewDossierRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	// Initialize the workflow engine. The transition table is an injected
	// value, not package state.
	validator := workflow.NewValidator(workflow.DefaultTransitionTable())
	recorder := workflow.NewRecorder(nil)

	// Initialize notification publisher and service
	publisher := client.NewNotificationPublisher(eventsClient, log.Logger)
	dossierService := service.NewDossierService(dossierRepo, historyRepo, validator, recorder, publisher, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(dossierService, log)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/dossiers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListDossiers(w, r)
		case http.MethodPost:
			httpHandler.CreateDossier(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	api.HandleFunc("/api/v1/dossiers/get", httpHandler.GetDossier)
	api.HandleFunc("/api/v1/dossiers/transition", httpHandler.TransitionDossier)
	api.HandleFunc("/api/v1/dossiers/transitions", httpHandler.AvailableTransitions)
	api.HandleFunc("/api/v1/dossiers/signoff", httpHandler.SignOffDossier)
	api.HandleFunc("/api/v1/dossiers/machine", httpHandler.AssignMachineFamily)
	api.HandleFunc("/api/v1/dossiers/delete", httpHandler.DeleteDossier)

	mux := http.NewServeMux()

	// Health check, outside the auth boundary
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.Handle("/api/", middleware.Auth(cfg.Auth.JWTSecret)(api))

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
