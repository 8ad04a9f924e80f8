package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mmstore/storefront/internal/catalog"
	"github.com/mmstore/storefront/internal/domain/cart"
	"github.com/mmstore/storefront/internal/domain/checkout"
	"github.com/mmstore/storefront/internal/domain/user"
	"github.com/mmstore/storefront/internal/handler"
	"github.com/mmstore/storefront/internal/storage"
	"github.com/mmstore/storefront/pkg/health"
	"github.com/mmstore/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Durable snapshot store for cart and user records.
	snapshots, err := storage.NewFile(cfg.DataDir)
	if err != nil {
		return errors.Wrap(err, "create snapshot store")
	}

	// Stores, hydrated from their snapshots.
	cartStore, err := cart.NewStore(ctx, snapshots, lg)
	if err != nil {
		return errors.Wrap(err, "hydrate cart store")
	}
	sessions := user.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL)
	userStore, err := user.NewStore(ctx, snapshots, user.AcceptAll{}, sessions, lg)
	if err != nil {
		return errors.Wrap(err, "hydrate user store")
	}

	// Remote catalog and checkout assembler.
	catalogClient := catalog.NewClient(cfg.CatalogURL)
	assembler := checkout.NewAssembler(
		cartStore,
		userStore,
		checkout.DelaySettler{Delay: cfg.SettleDelay},
		lg,
	)

	// Health check service. The catalog is a readiness dependency: the
	// storefront cannot sell what it cannot list.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", 5*time.Second, func(ctx context.Context) error {
		_, err := catalogClient.List(ctx, 1, 0)
		return err
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h := handler.New(cartStore, userStore, assembler, catalogClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront", m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: flip readiness, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
