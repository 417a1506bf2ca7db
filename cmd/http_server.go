package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/admin"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/booking"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/dashboard"
	"github.com/frahmantamala/salon-portal/internal/payment"
	"github.com/frahmantamala/salon-portal/internal/telemetry"
	"github.com/frahmantamala/salon-portal/internal/transport/openapi"
	"github.com/frahmantamala/salon-portal/internal/transport/rest"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the portal HTTP server in front of the salon API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

const (
	sessionSweepInterval = time.Minute
	sessionMaxIdle       = 30 * time.Minute
	openAPIFile          = "api/openapi.yml"
)

type Dependencies struct {
	Config    *internal.Config
	Logger    *slog.Logger
	Bus       *events.EventBus
	Router    *chi.Mux
	Sessions  *sessionBackend
	Operator  *auth.Session
	Payments  *payment.Registry
	Dashboard *dashboard.Service
	Telemetry telemetry.Shutdown
}

func startHTTPServer() error {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	lg := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(deps.Router, "salon-portal"),
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	startBackgroundWorkers(workerCtx, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server", "address", addr, "salon_api", deps.Config.API.BaseURL)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdown(deps, nil)
			return fmt.Errorf("server failed: %w", err)
		}
	}

	stopWorkers()
	shutdown(deps, server)
	lg.Info("server stopped")
	return nil
}

func shutdown(deps *Dependencies, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	}
	deps.Payments.CloseAll()
	if err := deps.Sessions.Close(); err != nil {
		deps.Logger.Error("session store close error", "error", err)
	}
	if err := deps.Telemetry(ctx); err != nil {
		deps.Logger.Error("tracer shutdown error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	specPath := filepath.Join(configDir, openAPIFile)
	doc, err := openapi.Load(ctx, specPath)
	if err != nil {
		return nil, err
	}
	lg.Info("openapi document loaded", "path", specPath, "operations", len(openapi.Operations(doc)))

	operator, sessions, err := restoreSession(ctx, cfg, lg)
	if err != nil {
		return nil, err
	}
	if operator.IsAuthenticated() {
		lg.Info("operator session restored", "owner", cfg.Session.Owner)
	}

	bus := events.NewEventBus(lg)
	subscribeEventLog(bus, lg)

	client := newAPIClient(cfg, lg)
	payments := payment.NewRegistry(payment.NewAPIGateway(client), payment.Options{
		PollInterval:    cfg.Payment.PollInterval,
		MaxPollAttempts: cfg.Payment.MaxPollAttempts,
		CountryCode:     cfg.Payment.CountryCode,
		Bus:             bus,
		Logger:          lg,
	})
	dash := dashboard.NewService(
		dashboard.NewAPISource(operator.Client(), cfg.Dashboard.PageSize),
		cfg.Dashboard.RefreshInterval, bus, lg)

	authService := auth.NewService(client, lg)
	verifier := auth.NewVerifier(authService, time.Minute)

	paymentHandler := payment.NewHandler(payments, client, bus, lg)
	paymentHandler.CheckOrigin = originChecker(cfg.Server.Origins())

	health := rest.NewHealthHandler(map[string]rest.Check{
		"salon_api":     func(ctx context.Context) error { return pingAPI(ctx, client) },
		"session_store": sessions.Ping,
	})

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:   health,
		Auth:     auth.NewHandler(authService, verifier),
		Booking:  booking.NewHandler(booking.NewService(client, lg), payments, client, lg),
		Payment:  paymentHandler,
		Admin:    admin.NewHandler(admin.NewConsole(client, cfg.Dashboard.PageSize, lg), dash, lg),
		Resolver: verifier,
	}, rest.RouterOptions{
		AllowedOrigins:   cfg.Server.Origins(),
		PaymentRateLimit: cfg.Server.RateLimitPerMinute,
		OpenAPIPath:      specPath,
	}, lg)

	return &Dependencies{
		Config:    cfg,
		Logger:    lg,
		Bus:       bus,
		Router:    router,
		Sessions:  sessions,
		Operator:  operator,
		Payments:  payments,
		Dashboard: dash,
		Telemetry: shutdownTracing,
	}, nil
}

// pingAPI reads the smallest public collection of the salon API.
func pingAPI(ctx context.Context, client *apiclient.Client) error {
	_, err := client.DoRaw(ctx, http.MethodGet, "/service-categories/", nil, nil)
	return err
}

// originChecker accepts websocket upgrades from the configured CORS origins.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
