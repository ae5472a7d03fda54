package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-gatekeeper/internal/config"
	"clinic-gatekeeper/internal/database"
	"clinic-gatekeeper/internal/event"
	"clinic-gatekeeper/internal/gatekeeper"
	"clinic-gatekeeper/internal/handler"
	"clinic-gatekeeper/internal/metrics"
	"clinic-gatekeeper/internal/middleware"
	"clinic-gatekeeper/internal/repository"
	"clinic-gatekeeper/internal/route"
	"clinic-gatekeeper/internal/router"
	"clinic-gatekeeper/internal/service"
	"clinic-gatekeeper/internal/token"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	accessVerifier, err := token.NewVerifier("access", []byte(cfg.AccessTokenSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize access verifier: %w", err)
	}
	refreshVerifier, err := token.NewVerifier("refresh", []byte(cfg.RefreshTokenSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize refresh verifier: %w", err)
	}
	accessIssuer, err := token.NewIssuer([]byte(cfg.AccessTokenSecret), token.DefaultAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize access issuer: %w", err)
	}
	refreshIssuer, err := token.NewIssuer([]byte(cfg.RefreshTokenSecret), cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize refresh issuer: %w", err)
	}

	routes, err := route.NewClassifier(cfg.PublicPaths, cfg.PublicPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile public routes: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.Open(ctx, database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	userRepo := repository.NewUserRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)
	slog.Info("database ready")

	recorder := metrics.New()
	bus := event.NewBus()
	auditService := service.NewAuditService(auditRepo, bus)
	stopAudit := auditService.Start(ctx)

	authService := service.NewAuthService(userRepo, accessIssuer, refreshIssuer, bus)
	authService.SetMetrics(recorder)
	if err := authService.EnsureDefaultAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		stopAudit()
		db.Close()
		return nil, fmt.Errorf("failed to seed administrator: %w", err)
	}

	gate, err := gatekeeper.New(gatekeeper.Config{
		Routes:        routes,
		Access:        accessVerifier,
		Refresh:       refreshVerifier,
		Issuer:        accessIssuer,
		SignInPath:    cfg.SignInPath,
		RefreshWindow: cfg.RefreshWindow,
		Production:    cfg.Production(),
		Events:        bus,
		Metrics:       recorder,
	})
	if err != nil {
		stopAudit()
		db.Close()
		return nil, fmt.Errorf("failed to initialize gatekeeper: %w", err)
	}

	sessionAuth := middleware.NewSessionAuth(accessVerifier, gatekeeper.AccessCookieName)

	appRouter := router.New(cfg, gate, sessionAuth, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, accessVerifier, gate.Cookies(), cfg.RefreshTokenTTL, gate.SignInPath()),
		Session: handler.NewSessionHandler(gate.SignInPath()),
		Audit:   handler.NewAuditHandler(auditService),
		Health:  handler.NewHealthHandler(db),
		Metrics: recorder,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("gatekeeper configured",
		"environment", cfg.Environment,
		"sign_in_path", gate.SignInPath(),
		"public_paths", cfg.PublicPaths,
		"public_patterns", cfg.PublicPatterns,
		"refresh_window", cfg.RefreshWindow,
	)

	return &App{
		server: server,
		cleanupFuncs: []func(){
			stopAudit,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	case err := <-serveErr:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, fn := range a.cleanupFuncs {
		fn()
	}
}
