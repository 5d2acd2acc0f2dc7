// Package app wires configuration, storage, services and the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/domain/cart"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/domain/order"
	"github.com/megharaj2002/canteen/internal/handler"
	"github.com/megharaj2002/canteen/pkg/health"
	"github.com/megharaj2002/canteen/pkg/httpmiddleware"
)

// Server is the fully wired HTTP surface: API routes, health probes and the
// middleware chain.
type Server struct {
	Handler http.Handler
	Health  *health.Health

	close func()
}

// Close releases storage and stops health checks.
func (s *Server) Close() {
	s.Health.Stop()
	s.close()
}

// Build creates storage, services and the HTTP handler. Background work
// (health checks, rate limiter eviction) stops when ctx is done or Close is
// called.
func Build(ctx context.Context, lg *zap.Logger, tp trace.TracerProvider, mp metric.MeterProvider, cfg *Config) (*Server, error) {
	hcfg, err := cfg.HandlerConfig()
	if err != nil {
		return nil, err
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	repos, err := openStorage(ctx, lg, cfg, healthSvc)
	if err != nil {
		return nil, err
	}
	healthSvc.Start(ctx, 10*time.Second)

	catalogService := catalog.NewService(repos.products, repos.categories)
	cartService := cart.NewService(repos.carts, repos.products)
	orderService := order.NewService(repos.orders,
		order.WithEnforcedTransitions(cfg.Orders.EnforceTransitions),
		order.WithAvailabilityRecheck(cfg.Orders.RecheckAvailability),
		order.WithTracerProvider(tp),
		order.WithMeterProvider(mp),
	)
	h := handler.New(hcfg, catalogService, cartService, orderService, auth.NewTokens([]byte(cfg.JWTSecret)))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle(handler.PathPrefix+"/", h.Routes())

	return &Server{
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument("canteen-api", tp, mp),
			httpmiddleware.LogRequests(),
		),
		Health: healthSvc,
		close:  repos.close,
	}, nil
}

// Run builds the server, serves until ctx is done and shuts down
// gracefully.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	srv, err := Build(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.Handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		srv.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
	}()

	srv.Health.SetReady(true)
	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
