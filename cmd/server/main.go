package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackify/internal/backend"
	"trackify/internal/charts"
	"trackify/internal/config"
	"trackify/internal/handlers"
	"trackify/internal/log"
	"trackify/internal/service"
	"trackify/internal/session"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentApp, Output: os.Stdout})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	be, err := backend.Open(openCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Failed to close stores", log.FieldError, err)
		}
	}()

	sessions := session.NewManager(be.Sessions, session.WithTTL(cfg.SessionTTL))
	h := handlers.NewHandlers(handlers.Deps{
		Auth:         service.NewAuth(be.Store, sessions),
		Expenses:     service.NewExpenses(be.Store),
		Budget:       service.NewBudget(be.Store),
		Profile:      service.NewProfile(be.Store),
		Charts:       charts.NewGenerator(charts.DefaultSize),
		Store:        be.Store,
		SecureCookie: cfg.SecureCookie,
		SessionTTL:   sessions.TTL(),
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           withMiddleware(setupRouter(h, cfg.StaticDir), logger, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server listening", "addr", srv.Addr, log.FieldBackend, string(be.Type), "session_store", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sweepLog := logger.WithComponent(log.ComponentSession)
		return sessions.RunSweeper(gctx, cfg.SessionSweepInterval, func(removed int64, err error) {
			if err != nil {
				sweepLog.Warn("Session sweep failed", log.FieldOperation, log.OpSweep, log.FieldError, err)
				return
			}
			if removed > 0 {
				sweepLog.Info("Expired sessions removed", log.FieldOperation, log.OpSweep, log.FieldRemoved, removed)
			}
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)

	// Public routes
	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)

	// Protected routes
	protected := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(fn)
	}
	mux.Handle("GET /api/me", protected(h.Me))

	mux.Handle("GET /api/expenses", protected(h.ListExpenses))
	mux.Handle("POST /api/expenses", protected(h.CreateExpense))
	mux.Handle("GET /api/expenses/{id}", protected(h.GetExpense))
	mux.Handle("PUT /api/expenses/{id}", protected(h.UpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", protected(h.DeleteExpense))

	mux.Handle("GET /api/goals", protected(h.GetGoal))
	mux.Handle("POST /api/goals", protected(h.SetGoal))
	mux.Handle("GET /api/limits", protected(h.GetLimit))
	mux.Handle("POST /api/limits", protected(h.SetLimit))

	// Profile routes report a vanished user as 404, so they only check the session.
	mux.Handle("GET /api/profile", h.SessionMiddleware(http.HandlerFunc(h.GetProfile)))
	mux.Handle("PUT /api/profile", h.SessionMiddleware(http.HandlerFunc(h.UpdateProfile)))

	mux.Handle("GET /api/summary", protected(h.Summary))
	mux.Handle("GET /api/charts/categories.png", protected(h.CategoryChart))
	mux.Handle("GET /api/charts/yearly.png", protected(h.MonthlyChart))

	if staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
	}

	return mux
}

func withMiddleware(next http.Handler, logger *log.Logger, origins []string) http.Handler {
	h := handlers.CORS(origins)(next)
	h = handlers.SecurityHeaders(h)
	h = handlers.Recover(h)
	h = handlers.AccessLog(h)
	return log.Middleware(logger)(h)
}
