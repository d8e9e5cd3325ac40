package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmoralesdev/tradecart-backend/api/routes"
	"github.com/rmoralesdev/tradecart-backend/internal/auth"
	"github.com/rmoralesdev/tradecart-backend/internal/cart"
	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/internal/distributors"
	"github.com/rmoralesdev/tradecart-backend/internal/notifications"
	"github.com/rmoralesdev/tradecart-backend/internal/orders"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/internal/stats"
	"github.com/rmoralesdev/tradecart-backend/internal/tenant"
	"github.com/rmoralesdev/tradecart-backend/internal/users"
	"github.com/rmoralesdev/tradecart-backend/pkg/config"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/metrics"
	"github.com/rmoralesdev/tradecart-backend/pkg/migrate"
	"github.com/rmoralesdev/tradecart-backend/pkg/outbox"
	"github.com/rmoralesdev/tradecart-backend/pkg/redis"
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

	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)

	catalogRepo := catalog.NewRepository(conn)
	pricingRepo := pricing.NewRepository(conn)

	statsCache, err := stats.NewCache(stats.NewService(conn).BuildDashboard, cfg.Stats.TTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stats cache", err)
		os.Exit(1)
	}

	resolver, err := pricing.NewResolver(catalogRepo, pricingRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create price resolver", err)
		os.Exit(1)
	}
	pricingAdmin, err := pricing.NewAdminService(pricingRepo, catalogRepo, dbClient, events, statsCache)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing admin service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalogRepo, statsCache)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	distributorService, err := distributors.NewService(distributors.NewRepository(conn), statsCache)
	if err != nil {
		logg.Error(context.Background(), "failed to create distributor service", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cart.NewRepository(conn), resolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(
		orders.NewRepository(conn),
		cart.NewRepository(conn),
		catalogRepo,
		pricingRepo,
		dbClient,
		events,
		statsCache,
		redisClient,
		cfg.Checkout,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(users.NewRepository(conn), distributorService, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	tenantResolver, err := tenant.NewResolver(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create tenant resolver", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			Metrics:              commerceMetrics,
			TenantResolver:       tenantResolver,
			AuthService:          authService,
			CatalogService:       catalogService,
			PriceResolver:        resolver,
			PricingAdmin:         pricingAdmin,
			CartService:          cartService,
			OrdersService:        ordersService,
			DistributorService:   distributorService,
			NotificationsService: notificationsService,
			StatsCache:           statsCache,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
