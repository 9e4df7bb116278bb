// Q-aura Payments
//
// Main entry point for the checkout and payment reconciliation service.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/qaura/qaura-payments/config"
	"github.com/qaura/qaura-payments/internal/adapters/mercadopago"
	"github.com/qaura/qaura-payments/internal/adapters/notifier"
	"github.com/qaura/qaura-payments/internal/core/ports"
	"github.com/qaura/qaura-payments/internal/core/reference"
	"github.com/qaura/qaura-payments/internal/core/service"
	"github.com/qaura/qaura-payments/internal/handlers"
	"github.com/qaura/qaura-payments/internal/platform/database"
	"github.com/qaura/qaura-payments/internal/platform/logger"
	"github.com/qaura/qaura-payments/internal/platform/metrics"
	"github.com/qaura/qaura-payments/internal/platform/redis"
	"github.com/qaura/qaura-payments/internal/subscription"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "qaura-payments",
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service stopped with error", err)
		os.Exit(1)
	}
	log.Info(ctx, "service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure Layer
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	db, err := database.New(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	closers = append(closers, db.Close)
	readiness := map[string]handlers.Pinger{"database": db}

	repo, err := subscription.NewRepository(db)
	if err != nil {
		return err
	}
	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate subscription tables: %w", err)
		}
	}

	var claims *subscription.ClaimGuard
	if cfg.Redis.Enabled() {
		rdb, err := redis.New(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		closers = append(closers, rdb.Close)
		readiness["redis"] = rdb
		if claims, err = subscription.NewClaimGuard(rdb, cfg.Redis.ClaimTTL); err != nil {
			return err
		}
	} else {
		log.Warn(ctx, "REDIS_URL not set, transition claims rely on the database only")
	}

	var transitionNotifier ports.Notifier = notifier.NewLogNotifier(log)
	if cfg.Notifier.URL != "" {
		transitionNotifier = notifier.NewClient(cfg.Notifier.URL, cfg.Notifier.APIKey, cfg.Notifier.Timeout)
	}

	gateway, err := mercadopago.NewAdapter(cfg.MercadoPago.AccessToken)
	if err != nil {
		return err
	}

	var validator ports.WebhookValidator
	if cfg.MercadoPago.WebhookSecret != "" {
		validator = mercadopago.NewWebhookValidator(cfg.MercadoPago.WebhookSecret)
	} else {
		log.Warn(ctx, "MP_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}

	// Service Layer
	activator, err := subscription.NewActivator(subscription.ActivatorParams{
		Repository: repo,
		Claims:     claims,
		Notifier:   transitionNotifier,
		Logger:     log,
		Metrics:    paymentMetrics,
	})
	if err != nil {
		return err
	}

	builder := service.NewPreferenceBuilder(service.BuilderOptions{
		DefaultPlanID:        cfg.Checkout.DefaultPlanID,
		MaxInstallments:      cfg.Checkout.MaxInstallments,
		ExcludedPaymentTypes: cfg.Checkout.ExcludedPaymentTypes,
		StatementDescriptor:  cfg.Checkout.StatementDescriptor,
		TTL:                  cfg.Checkout.PreferenceTTL,
	}, reference.NewNonceSource())

	preferences, err := service.NewPreferenceService(service.PreferenceServiceParams{
		Gateway: gateway,
		Builder: builder,
		URLs: service.BuildContext{
			BaseURL:          cfg.Checkout.PublicBaseURL,
			NotificationPath: cfg.Checkout.NotificationPath,
		},
		Timeout: cfg.MercadoPago.Timeout,
		Logger:  log,
		Metrics: paymentMetrics,
	})
	if err != nil {
		return err
	}

	reconciler, err := service.NewWebhookReconciler(service.WebhookReconcilerParams{
		Gateway:   gateway,
		Activator: activator,
		Timeout:   cfg.MercadoPago.Timeout,
		Logger:    log,
		Metrics:   paymentMetrics,
	})
	if err != nil {
		return err
	}

	lookup, err := service.NewPaymentLookupService(gateway, cfg.MercadoPago.Timeout, paymentMetrics)
	if err != nil {
		return err
	}

	// API Layer
	handler := handlers.NewPaymentHandler(handlers.PaymentHandlerParams{
		Preferences: preferences,
		Reconciler:  reconciler,
		Payments:    lookup,
		Validator:   validator,
		Logger:      log,
		Version:     version,

		Dependencies: readiness,
	})
	router := handlers.SetupRouter(handler, handlers.RouterOptions{
		GinMode:     cfg.Server.GinMode,
		CORSOrigin:  cfg.Server.CORSOrigin,
		WebhookPath: cfg.Checkout.NotificationPath,
		Logger:      log,
		Gatherer:    registry,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(log.WithField(gctx, "addr", server.Addr), "server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
