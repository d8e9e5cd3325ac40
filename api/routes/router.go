package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmoralesdev/tradecart-backend/api/controllers"
	"github.com/rmoralesdev/tradecart-backend/api/middleware"
	"github.com/rmoralesdev/tradecart-backend/internal/auth"
	"github.com/rmoralesdev/tradecart-backend/internal/cart"
	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/internal/distributors"
	"github.com/rmoralesdev/tradecart-backend/internal/notifications"
	"github.com/rmoralesdev/tradecart-backend/internal/orders"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/internal/stats"
	"github.com/rmoralesdev/tradecart-backend/internal/tenant"
	"github.com/rmoralesdev/tradecart-backend/pkg/config"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/metrics"
	"github.com/rmoralesdev/tradecart-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. The tenant resolver runs on
// every request; auth is optional on public reads so storefront traffic can
// stay anonymous.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             *db.Client
	Redis          *redis.Client
	Metrics        *metrics.CommerceMetrics
	TenantResolver *tenant.Resolver

	AuthService          auth.Service
	CatalogService       catalog.Service
	PriceResolver        *pricing.Resolver
	PricingAdmin         pricing.AdminService
	CartService          cart.Service
	OrdersService        orders.Service
	DistributorService   distributors.Service
	NotificationsService notifications.Service
	StatsCache           *stats.Cache
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Tenant(deps.TenantResolver, deps.Metrics, logg),
	)

	var dbPinger, redisPinger interface{ Ping(ctx context.Context) error }
	if deps.DB != nil {
		dbPinger = deps.DB
	}
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	r.Get("/healthz", controllers.Health(dbPinger, redisPinger, logg))
	r.Handle("/metrics", promhttp.Handler())

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.Webhook.RateLimitWindow,
		cfg.Webhook.RateLimitMax,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.Register(deps.AuthService, logg))
			r.Post("/login", controllers.Login(deps.AuthService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/products", controllers.ListProducts(deps.CatalogService, deps.PriceResolver, deps.Metrics, logg))
			r.Get("/products/{productID}", controllers.GetProduct(deps.CatalogService, deps.PriceResolver, deps.Metrics, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			if deps.Redis != nil {
				r.Use(middleware.RateLimit(webhookPolicy, deps.Redis, logg))
			}
			r.Post("/payment-success", controllers.PaymentSuccessWebhook(deps.OrdersService, deps.Metrics, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if deps.Redis != nil {
				r.Use(middleware.Idempotency(deps.Redis, logg))
			}

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.CartService, logg))
				r.Put("/items/{productID}", controllers.SetCartItem(deps.CartService, logg))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.CartService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.PlaceOrder(deps.OrdersService, deps.Metrics, logg))
				r.Get("/", controllers.ListOrders(deps.OrdersService, logg))
				r.Get("/{orderID}", controllers.GetOrder(deps.OrdersService, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.NotificationsService, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.NotificationsService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.NotificationsService, logg))
			})
		})
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, string(enums.RoleAdmin)))

		r.Get("/stats", controllers.GetStats(deps.StatsCache, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.CatalogService, logg))
			r.Put("/{productID}", controllers.AdminUpdateProduct(deps.CatalogService, logg))
			r.Delete("/{productID}", controllers.AdminDeleteProduct(deps.CatalogService, logg))
		})

		r.Route("/distributors", func(r chi.Router) {
			r.Post("/", controllers.CreateDistributor(deps.DistributorService, logg))
			r.Get("/", controllers.ListDistributors(deps.DistributorService, logg))

			r.Route("/{distributorID}", func(r chi.Router) {
				r.Get("/", controllers.GetDistributor(deps.DistributorService, logg))
				r.Put("/", controllers.UpdateDistributor(deps.DistributorService, logg))
				r.Delete("/", controllers.DeleteDistributor(deps.DistributorService, logg))

				r.Route("/domains", func(r chi.Router) {
					r.Post("/", controllers.AddDistributorDomain(deps.DistributorService, logg))
					r.Post("/{host}/verify", controllers.VerifyDistributorDomain(deps.DistributorService, logg))
					r.Delete("/{host}", controllers.RemoveDistributorDomain(deps.DistributorService, logg))
				})

				r.Put("/default-discount", controllers.SetDefaultDiscount(deps.PricingAdmin, logg))
				r.Route("/category-discounts", func(r chi.Router) {
					r.Get("/", controllers.ListCategoryDiscounts(deps.PricingAdmin, logg))
					r.Put("/{category}", controllers.UpsertCategoryDiscount(deps.PricingAdmin, logg))
					r.Delete("/{category}", controllers.DeleteCategoryDiscount(deps.PricingAdmin, logg))
				})
				r.Route("/products/{productID}/price", func(r chi.Router) {
					r.Put("/", controllers.PutProductPrice(deps.PricingAdmin, logg))
					r.Delete("/", controllers.DeleteProductPrice(deps.PricingAdmin, logg))
				})
			})
		})
	})

	return r
}
