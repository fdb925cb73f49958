package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"prayer-tracker/internal/handler"
	"prayer-tracker/internal/sessions/repository"
	"prayer-tracker/internal/sessions/service"
	"prayer-tracker/internal/timer"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/config"
	"prayer-tracker/internal/shared/database"
	"prayer-tracker/internal/shared/health"
	"prayer-tracker/internal/shared/kvstore"
	"prayer-tracker/internal/shared/middleware"
)

// Services holds the storage-backed components shared by the server and the
// CLI commands.
type Services struct {
	DB       *database.DB
	Store    kvstore.Store
	Sessions *service.SessionService
	Recorder *service.Recorder
	Clock    clock.Clock
}

// Open opens the database and builds the ledger services.
func Open(cfg *Config, clk clock.Clock) (*Services, error) {
	if clk == nil {
		clk = clock.System
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := repository.NewSessionRepository(db)
	return &Services{
		DB:       db,
		Store:    kvstore.NewSQLiteStore(db, clk),
		Sessions: service.NewSessionService(repo, clk, cfg.Location()),
		Recorder: service.NewRecorder(repo, clk, cfg.MinSessionSeconds),
		Clock:    clk,
	}, nil
}

// TimerStatus reports the persisted timer without taking it over.
func (s *Services) TimerStatus(ctx context.Context) (timer.Status, error) {
	return timer.Peek(ctx, s.Store, config.SnapshotKey, s.Clock.Now())
}

// Close closes the database.
func (s *Services) Close() error {
	return s.DB.Close()
}

// App holds the application dependencies and HTTP server.
type App struct {
	cfg         *Config
	services    *Services
	timer       *timer.Controller
	server      *http.Server
	rateLimiter *middleware.RateLimiter
}

// New creates and wires all application dependencies. A timer left running
// by a previous process is resumed before the server accepts requests.
func New(cfg *Config) (*App, error) {
	services, err := Open(cfg, clock.System)
	if err != nil {
		return nil, err
	}

	ctrl := timer.New(services.Store, services.Recorder, services.Clock, timer.Config{
		TickInterval: cfg.TickInterval(),
		SnapshotKey:  config.SnapshotKey,
	})
	if err := ctrl.ResumeFromPersisted(context.Background()); err != nil {
		ctrl.Close()
		services.Close()
		return nil, fmt.Errorf("failed to resume timer: %w", err)
	}
	st := ctrl.Status()
	log.Printf("Timer resumed: %s at %ds", st.State, st.ElapsedSeconds)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, services.Clock)

	router := NewRouter(
		cfg,
		handler.NewTimerHandler(ctrl),
		handler.NewSessionsHandler(services.Sessions, services.Clock),
		health.NewHealthHandler(services.DB),
		rateLimiter,
	)

	return &App{
		cfg:      cfg,
		services: services,
		timer:    ctrl,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		rateLimiter: rateLimiter,
	}, nil
}

// Handler exposes the configured router.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	log.Printf("Server listening on %s", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then stops the timer tick and closes the
// database. The last persisted snapshot is kept for the next start.
func (a *App) Shutdown() error {
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)

	a.rateLimiter.Stop()
	a.timer.Close()
	if err := a.services.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}

	if serverErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", serverErr)
	}

	log.Println("Server exited properly")
	return nil
}
