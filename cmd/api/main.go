package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olekdev/tackleshop-backend/api/controllers"
	"github.com/olekdev/tackleshop-backend/api/routes"
	"github.com/olekdev/tackleshop-backend/internal/cart"
	"github.com/olekdev/tackleshop-backend/internal/catalog"
	"github.com/olekdev/tackleshop-backend/internal/checkout"
	"github.com/olekdev/tackleshop-backend/internal/notifications"
	"github.com/olekdev/tackleshop-backend/internal/orders"
	"github.com/olekdev/tackleshop-backend/internal/promos"
	"github.com/olekdev/tackleshop-backend/pkg/config"
	"github.com/olekdev/tackleshop-backend/pkg/db"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/metrics"
	"github.com/olekdev/tackleshop-backend/pkg/migrate"
	"github.com/olekdev/tackleshop-backend/pkg/redis"
	"github.com/olekdev/tackleshop-backend/pkg/session"
)

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	cartService, err := cart.NewService(
		cart.NewRedisLineStore(redisClient, logg, cfg.Cart.PersistTTL),
		catalogRepo,
		logg,
		cfg.Cart,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	defer cartService.Close()

	promoValidator, err := promos.NewValidator(
		promos.NewRepository(dbClient.DB()),
		redisClient,
		logg,
		checkoutMetrics,
		cfg.Promo,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create promo validator", err)
		os.Exit(1)
	}

	assembler, err := checkout.NewAssembler(checkout.AssemblerParams{
		Tx:       dbClient,
		Catalog:  catalogRepo,
		Sender:   notifications.NewWebhookSender(cfg.Notify),
		Logger:   logg,
		Metrics:  checkoutMetrics,
		Currency: enums.Currency(cfg.App.Currency),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order assembler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			Sessions:  sessionManager,
			Carts:     cartService,
			Promos:    promoValidator,
			Checkout:  assembler,
			Orders:    ordersRepo,
			Pingers:   []controllers.Pinger{dbClient, redisClient},
			MetricsHN: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
