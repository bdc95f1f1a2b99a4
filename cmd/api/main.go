package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cartflow/api/controllers"
	"github.com/angelmondragon/cartflow/api/routes"
	"github.com/angelmondragon/cartflow/internal/analytics"
	"github.com/angelmondragon/cartflow/internal/checkout"
	"github.com/angelmondragon/cartflow/internal/orders"
	"github.com/angelmondragon/cartflow/internal/search"
	"github.com/angelmondragon/cartflow/internal/session"
	"github.com/angelmondragon/cartflow/pkg/config"
	"github.com/angelmondragon/cartflow/pkg/db"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/metrics"
	"github.com/angelmondragon/cartflow/pkg/migrate"
	"github.com/angelmondragon/cartflow/pkg/pubsub"
	"github.com/angelmondragon/cartflow/pkg/redis"
	"github.com/angelmondragon/cartflow/pkg/woocommerce"
)

const shutdownTimeout = 15 * time.Second

type tracker interface {
	checkout.ShippingInfoTracker
	orders.PurchaseTracker
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	wc, err := woocommerce.NewClient(cfg.WooCommerce,
		woocommerce.WithBreaker(cfg.WooCommerce.BreakerFailures, cfg.WooCommerce.BreakerCooldown),
		woocommerce.WithStateListener(func(name string, from, to gobreaker.State) {
			checkoutMetrics.SetBreakerState(name, woocommerce.StateValue(to))
			logg.Warn(logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}), "circuit breaker state changed")
		}),
	)
	if err != nil {
		return err
	}

	pingers := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	var events tracker = analytics.Noop{}
	if cfg.Analytics.Enabled {
		psClient, psErr := pubsub.NewClient(ctx, cfg.Analytics, logg)
		if psErr != nil {
			return psErr
		}
		defer func() { err = multierr.Append(err, psClient.Close()) }()

		publisher := psClient.AnalyticsPublisher()
		defer publisher.Stop()

		analyticsTracker, trackerErr := analytics.NewTracker(publisher, cfg.Analytics.Timeout, checkoutMetrics, logg)
		if trackerErr != nil {
			return trackerErr
		}
		defer analyticsTracker.Wait()
		events = analyticsTracker
		pingers["pubsub"] = psClient
	}

	sessions, err := session.NewManager(redisClient, cfg.Session.TTL, events, logg)
	if err != nil {
		return err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Gateway:        wc,
		Repo:           orders.NewRepository(dbClient.DB()),
		Sessions:       sessions,
		Idempotency:    redisClient,
		IdempotencyTTL: cfg.Idempotency.OrderTTL,
		Metrics:        checkoutMetrics,
		Tracker:        events,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	searchSvc, err := search.NewService(wc, cfg.Search.PageSize, checkoutMetrics, logg)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Pingers:     pingers,
			Idempotency: redisClient,
			Sessions:    sessions,
			Orders:      orderSvc,
			Search:      searchSvc,
			Metrics:     checkoutMetrics,
			Gatherer:    registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return multierr.Combine(
		server.Shutdown(shutdownCtx),
		sessions.Flush(shutdownCtx),
	)
}
