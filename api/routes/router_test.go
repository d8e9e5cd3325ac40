package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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
	pkgAuth "github.com/rmoralesdev/tradecart-backend/pkg/auth"
	"github.com/rmoralesdev/tradecart-backend/pkg/config"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/outbox"
)

func newTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "secret", Issuer: "tradecart-test", ExpirationMinutes: 15},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
		Checkout: config.CheckoutConfig{LockWaitBudget: 10 * time.Second, TxBudget: 20 * time.Second},
		Webhook:  config.WebhookConfig{RateLimitWindow: time.Minute, RateLimitMax: 120},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB, *config.Config) {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Distributor{},
		&models.DistributorDomain{},
		&models.CategoryDiscount{},
		&models.DistributorPrice{},
		&models.DiscountTier{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
		&models.Notification{},
	))

	cfg := newTestConfig()
	logg := logger.New(logger.Options{ServiceName: "routes-test"})
	client := db.NewFromGorm(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogRepo := catalog.NewRepository(conn)
	pricingRepo := pricing.NewRepository(conn)

	resolver, err := pricing.NewResolver(catalogRepo, pricingRepo)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(catalogRepo, nil)
	require.NoError(t, err)
	pricingAdmin, err := pricing.NewAdminService(pricingRepo, catalogRepo, client, events, nil)
	require.NoError(t, err)
	distributorSvc, err := distributors.NewService(distributors.NewRepository(conn), nil)
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cart.NewRepository(conn), resolver, logg)
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(
		orders.NewRepository(conn),
		cart.NewRepository(conn),
		catalogRepo,
		pricingRepo,
		client,
		events,
		nil,
		nil,
		cfg.Checkout,
		logg,
	)
	require.NoError(t, err)
	authSvc, err := auth.NewService(users.NewRepository(conn), distributorSvc, cfg.JWT, cfg.Password)
	require.NoError(t, err)
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	statsCache, err := stats.NewCache(stats.NewService(conn).BuildDashboard, time.Minute, logg)
	require.NoError(t, err)
	tenantResolver, err := tenant.NewResolver(conn)
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Config:               cfg,
		Logger:               logg,
		DB:                   client,
		TenantResolver:       tenantResolver,
		AuthService:          authSvc,
		CatalogService:       catalogSvc,
		PriceResolver:        resolver,
		PricingAdmin:         pricingAdmin,
		CartService:          cartSvc,
		OrdersService:        ordersSvc,
		DistributorService:   distributorSvc,
		NotificationsService: notificationsSvc,
		StatsCache:           statsCache,
	})
	return handler, conn, cfg
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func mintAdminToken(t *testing.T, cfg *config.Config, conn *gorm.DB) string {
	t.Helper()
	admin := &models.User{ID: uuid.New(), Email: "admin-" + uuid.NewString()[:8] + "@tradecart.dev", Role: enums.RoleAdmin}
	require.NoError(t, conn.Create(admin).Error)
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: admin.ID, Role: enums.RoleAdmin})
	require.NoError(t, err)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	handler, _, _ := newTestRouter(t)
	w := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	t.Parallel()

	handler, conn, cfg := newTestRouter(t)

	w := doJSON(t, handler, http.MethodGet, "/admin/v1/stats", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	customer := &models.User{ID: uuid.New(), Email: "user@example.com", Role: enums.RoleCustomer}
	require.NoError(t, conn.Create(customer).Error)
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: customer.ID, Role: enums.RoleCustomer})
	require.NoError(t, err)

	w = doJSON(t, handler, http.MethodGet, "/admin/v1/stats", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/admin/v1/stats", mintAdminToken(t, cfg, conn), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutFlowEndToEnd(t *testing.T) {
	t.Parallel()

	handler, conn, cfg := newTestRouter(t)
	adminToken := mintAdminToken(t, cfg, conn)

	// Admin seeds the catalog.
	w := doJSON(t, handler, http.MethodPost, "/admin/v1/products", adminToken, map[string]any{
		"name":       "Pallet Jack",
		"sku":        "PJ-100",
		"category":   "warehouse",
		"base_price": "250.00",
		"stock":      10,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var product struct {
		ID uuid.UUID `json:"id"`
	}
	decodeData(t, w, &product)

	// Customer registers and fills the cart.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    "buyer@example.com",
		"password": "hunter2hunter2",
		"name":     "Bea Buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var session struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, w, &session)

	w = doJSON(t, handler, http.MethodPut, "/api/v1/cart/items/"+product.ID.String(), session.AccessToken, map[string]any{
		"quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var cartView struct {
		Subtotal string `json:"subtotal"`
	}
	decodeData(t, w, &cartView)
	require.True(t, decimal.RequireFromString(cartView.Subtotal).Equal(decimal.NewFromInt(500)))

	// Checkout against the async provider path, then confirm via webhook.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/orders", session.AccessToken, map[string]any{
		"payment_method":   "provider",
		"payment_ref":      "pay_router_1",
		"shipping_name":    "Bea Buyer",
		"shipping_address": "1 Dock Road",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var order struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	decodeData(t, w, &order)
	require.Equal(t, string(enums.OrderStatusPending), order.Status)

	w = doJSON(t, handler, http.MethodPost, "/api/v1/webhooks/payment-success", "", map[string]any{
		"payment_ref": "pay_router_1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var confirm struct {
		Status  string `json:"status"`
		Applied bool   `json:"applied"`
	}
	decodeData(t, w, &confirm)
	require.Equal(t, string(enums.OrderStatusPaid), confirm.Status)
	require.True(t, confirm.Applied)

	// Provider retry is absorbed.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/webhooks/payment-success", "", map[string]any{
		"payment_ref": "pay_router_1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &confirm)
	require.False(t, confirm.Applied)

	w = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/orders/%s", order.ID), session.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDistributorSeesDiscountedListing(t *testing.T) {
	t.Parallel()

	handler, conn, cfg := newTestRouter(t)
	adminToken := mintAdminToken(t, cfg, conn)

	w := doJSON(t, handler, http.MethodPost, "/admin/v1/products", adminToken, map[string]any{
		"name":       "Forklift Battery",
		"sku":        "FB-9",
		"category":   "warehouse",
		"base_price": "100.00",
		"stock":      50,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var product struct {
		ID uuid.UUID `json:"id"`
	}
	decodeData(t, w, &product)

	w = doJSON(t, handler, http.MethodPost, "/admin/v1/distributors", adminToken, map[string]any{
		"name":                     "Acme Wholesale",
		"email_domain":             "acme.example.com",
		"default_discount_percent": "25",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Guest sees the base price.
	w = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+product.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Price  string `json:"price"`
		Source string `json:"price_source"`
	}
	decodeData(t, w, &listing)
	require.True(t, decimal.RequireFromString(listing.Price).Equal(decimal.NewFromInt(100)))
	require.Equal(t, string(pricing.SourceBasePrice), listing.Source)

	// A registration on the claimed domain is auto-affiliated and priced with
	// the distributor's default discount.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    "buyer@acme.example.com",
		"password": "hunter2hunter2",
		"name":     "Bea Buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var session struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, w, &session)

	w = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+product.ID.String(), session.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &listing)
	require.True(t, decimal.RequireFromString(listing.Price).Equal(decimal.NewFromInt(75)))
	require.Equal(t, string(pricing.SourceDefaultDiscount), listing.Source)
}

func TestUnknownOrderReturnsNotFound(t *testing.T) {
	t.Parallel()

	handler, conn, cfg := newTestRouter(t)
	customer := &models.User{ID: uuid.New(), Email: "lost@example.com", Role: enums.RoleCustomer}
	require.NoError(t, conn.Create(customer).Error)
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: customer.ID, Role: enums.RoleCustomer})
	require.NoError(t, err)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
