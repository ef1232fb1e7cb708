package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"appgate/internal/auth"
	"appgate/internal/config"
	"appgate/internal/infrastructure"
	"appgate/internal/license"
	custommw "appgate/internal/middleware"
	handlers "appgate/internal/transport/http"
	"appgate/internal/user"
)

// Version reported by the health endpoint.
const Version = "v1.0.0"

// Application is the main application container. All collaborators
// are created once at startup from the immutable configuration.
type Application struct {
	Config    *config.Config
	Router    *chi.Mux
	Server    *http.Server
	Logger    *slog.Logger
	Validator license.Validator
	Gate      *custommw.Gate
	UserStore user.Store

	otel       *infrastructure.OTelProviders
	closeStore func()
}

// NewApplication wires the application with dependency injection.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.String("environment", cfg.Environment),
		slog.String("license_strategy", cfg.License.Strategy))

	otelProviders, err := infrastructure.InitializeOTel()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: logger,
		otel:   otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the user store, the license validator,
// and the request gate.
func (a *Application) initializeServices() error {
	if dsn := a.Config.Database.DSN; dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := user.NewPostgresStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to user store: %w", err)
		}
		a.UserStore = store
		a.closeStore = store.Close
	} else {
		a.Logger.Warn("no database DSN configured, using in-memory user store")
		a.UserStore = user.NewMemoryStore()
	}

	validator, err := license.New(a.Config.License, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create license validator: %w", err)
	}
	a.Validator = validator

	a.Gate = custommw.NewGate(validator, a.Config, a.Logger)
	if metrics, err := custommw.NewGateMetrics(a.otel.Meter); err != nil {
		a.Logger.Error("failed to create gate metrics", slog.String("error", err.Error()))
	} else {
		a.Gate.SetMetrics(metrics)
	}

	return nil
}

// setupRouter configures the middleware chain and routes. The metrics
// endpoint sits outside the gated group; everything else is gated.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RedirectSlashes)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)

	r.Handle("/metrics", a.otel.PrometheusHTTP)

	verifier := auth.NewService(a.UserStore, a.Logger)
	issuer := auth.NewIssuer(a.Config.Auth.SessionSecret, a.Config.Auth.SessionTTL,
		a.Config.Auth.CookieName, a.Config.IsProduction())

	authHandler := handlers.NewAuthHandler(verifier, issuer, a.Logger)
	healthHandler := handlers.NewHealthHandler(Version)
	pagesHandler := handlers.NewPagesHandler(a.Config.License.PurchaseURL)

	r.Group(func(r chi.Router) {
		r.Use(a.Gate.Handler)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Get("/health", healthHandler.Health)

			r.Route("/auth", func(r chi.Router) {
				if rl := a.Config.Auth.RateLimit; rl.Enabled {
					r.Use(custommw.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
				}
				r.Mount("/", authHandler.Routes())
			})
		})

		r.Get("/", pagesHandler.Root)
		r.Get(custommw.ErrorPagePath, pagesHandler.LicenseError)
		r.Get(custommw.ObtainPagePath, pagesHandler.ObtainLicense)
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run starts the server and blocks until shutdown completes. SIGINT
// and SIGTERM trigger a graceful drain bounded by ShutdownTimeout.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			a.Config.Server.ShutdownTimeout)
		defer cancel()

		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	if a.closeStore != nil {
		a.closeStore()
	}
	if cerr := infrastructure.CloseLogFile(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}
