package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"bracket-be/internal/config"
	"bracket-be/internal/handler"
	"bracket-be/internal/middleware"
	"bracket-be/internal/repository"
	"bracket-be/internal/service"
	"bracket-be/internal/service/auth"
	"bracket-be/pkg/database"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	scheduler   *service.SchedulerService
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// Stop the scheduler before the stores it resolves against go away
	if r.scheduler != nil {
		r.scheduler.Stop()
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if r.db != nil {
		r.db.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting bracket server")

	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Redis is optional: without it caching and vote throttling are skipped
	// but every correctness guarantee still holds.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
			redisClient = nil
		}
	}

	seasonRepo := repository.NewSeasonRepository(db)
	entrantRepo := repository.NewEntrantRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	eventRepo := repository.NewAdminEventRepository(db)

	bracketService := service.NewBracketService(db, seasonRepo, entrantRepo, matchRepo, redisClient, cfg, log)
	votingService := service.NewVotingService(db, matchRepo, voteRepo, redisClient, cfg, log)
	resolverService := service.NewResolverService(db, matchRepo, entrantRepo, redisClient, cfg, log)
	adminService := service.NewAdminService(db, matchRepo, eventRepo, redisClient, cfg, log)
	schedulerService := service.NewSchedulerService(db, matchRepo, resolverService, redisClient, cfg, log)
	authService := auth.NewService(cfg, log)

	schedulerService.Start(ctx)

	router := setupRouter(cfg, log, db, redisClient, bracketService, votingService, resolverService, adminService, schedulerService, authService)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	resources := &Resources{
		db:          db,
		redisClient: redisClient,
		scheduler:   schedulerService,
		server:      server,
		log:         log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}
}

// setupRouter configures and returns the HTTP router
func setupRouter(
	cfg *config.Config,
	log *logger.Logger,
	db *database.PostgresDB,
	redisClient *redis.Client,
	bracketService *service.BracketService,
	votingService *service.VotingService,
	resolverService *service.ResolverService,
	adminService *service.AdminService,
	schedulerService *service.SchedulerService,
	authService *auth.Service,
) *chi.Mux {
	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := handler.NewHealthHandler(db, redisClient)
	bracketHandler := handler.NewBracketHandler(bracketService, log)
	votingHandler := handler.NewVotingHandler(votingService, bracketService, cfg, log)
	adminHandler := handler.NewAdminHandler(bracketService, adminService, resolverService, schedulerService, cfg, log)

	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/current-matchup", bracketHandler.GetCurrentMatchup)
		r.Get("/tournament-bracket", bracketHandler.GetBracket)
		r.Get("/last-finished-match", bracketHandler.GetLastFinishedMatch)
		r.Post("/vote", votingHandler.SubmitVote)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(authService, log))

			r.Get("/seasons", adminHandler.ListSeasons)
			r.Post("/seasons", adminHandler.CreateSeason)
			r.Post("/seed-bracket", adminHandler.SeedBracket)
			r.Post("/start-season", adminHandler.StartSeason)
			r.Post("/event", adminHandler.ApplyEvent)
			r.Get("/matches/{matchId}/events", adminHandler.ListEvents)
			r.Post("/force-end", adminHandler.ForceEnd)
			r.Post("/start-next-match", adminHandler.StartNextMatch)
			r.Post("/resolve-due", adminHandler.ResolveDue)
			r.Post("/test-end", adminHandler.TestEnd)
		})
	})

	return r
}
