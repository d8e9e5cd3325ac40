package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/internal/cart"
	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/pkg/config"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/outbox"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Product{},
		&models.Distributor{},
		&models.CategoryDiscount{},
		&models.DistributorPrice{},
		&models.DiscountTier{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	))
	return conn
}

func newOrderService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	return newGuardedOrderService(t, conn, nil)
}

func newGuardedOrderService(t *testing.T, conn *gorm.DB, guard replayGuard) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc, err := NewService(
		NewRepository(conn),
		cart.NewRepository(conn),
		catalog.NewRepository(conn),
		pricing.NewRepository(conn),
		db.NewFromGorm(conn),
		outbox.NewService(outbox.NewRepository(conn), logg),
		nil,
		guard,
		config.CheckoutConfig{LockWaitBudget: 10 * time.Second, TxBudget: 20 * time.Second},
		logg,
	)
	require.NoError(t, err)
	return svc
}

type stubReplayGuard struct {
	keys map[string]bool
}

func (g *stubReplayGuard) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *stubReplayGuard) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(g.keys, key)
	}
	return nil
}

func (g *stubReplayGuard) IdempotencyKey(scope, id string) string {
	return "tc:idempotency:" + scope + ":" + id
}

func seedProduct(t *testing.T, conn *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Widget",
		SKU:       "SKU-" + uuid.NewString()[:8],
		Category:  "Misc",
		BasePrice: decimal.RequireFromString(price),
		Stock:     stock,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func seedCart(t *testing.T, conn *gorm.DB, userID uuid.UUID, lines map[uuid.UUID]int) {
	t.Helper()
	c := &models.Cart{ID: uuid.New(), UserID: userID}
	require.NoError(t, conn.Create(c).Error)
	for productID, qty := range lines {
		require.NoError(t, conn.Create(&models.CartItem{
			ID:        uuid.New(),
			CartID:    c.ID,
			ProductID: productID,
			Quantity:  qty,
		}).Error)
	}
}

func validInput(method enums.PaymentMethod, ref *string) PlaceOrderInput {
	return PlaceOrderInput{
		PaymentMethod:   method,
		PaymentRef:      ref,
		ShippingName:    "Jane Doe",
		ShippingAddress: "1 Main St, Springfield",
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 20)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 3})

	order, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	require.Len(t, order.Items, 1)
	require.True(t, order.TotalPrice.Equal(decimal.RequireFromString("30")))
	require.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("10")))
	require.True(t, order.Items[0].BasePrice.Equal(decimal.RequireFromString("10")))

	// Stock decremented, cart cleared, outbox event queued.
	var fresh models.Product
	require.NoError(t, conn.First(&fresh, "id = ?", product.ID).Error)
	require.Equal(t, 17, fresh.Stock)

	var itemCount int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&itemCount).Error)
	require.Zero(t, itemCount)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events, "event_type = ?", enums.EventOrderPlaced).Error)
	require.Len(t, events, 1)
}

func TestPlaceOrderProviderStartsPending(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 5)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	order, err := svc.PlaceOrder(context.Background(), userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, nil))
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestPlaceOrderInsufficientStockIsAtomic(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()
	product := seedProduct(t, conn, "10", 5)

	buyerA := uuid.New()
	buyerB := uuid.New()
	seedCart(t, conn, buyerA, map[uuid.UUID]int{product.ID: 3})
	seedCart(t, conn, buyerB, map[uuid.UUID]int{product.ID: 3})

	_, errA := svc.PlaceOrder(ctx, buyerA, pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))
	_, errB := svc.PlaceOrder(ctx, buyerB, pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))

	require.NoError(t, errA)
	require.Error(t, errB)
	typed := pkgerrors.As(errB)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	require.Contains(t, typed.Message(), product.Name)

	// Only the winner decremented: 5 - 3 = 2.
	var fresh models.Product
	require.NoError(t, conn.First(&fresh, "id = ?", product.ID).Error)
	require.Equal(t, 2, fresh.Stock)

	// Loser's cart survives the rollback untouched.
	var loserItems []models.CartItem
	require.NoError(t, conn.
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", buyerB).
		Find(&loserItems).Error)
	require.Len(t, loserItems, 1)
	require.Equal(t, 3, loserItems[0].Quantity)

	var orderCount int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.Equal(t, int64(1), orderCount)
}

func TestPlaceOrderPartialFailureRollsBackEverything(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	userID := uuid.New()
	plenty := seedProduct(t, conn, "10", 100)
	scarce := seedProduct(t, conn, "10", 1)
	seedCart(t, conn, userID, map[uuid.UUID]int{plenty.ID: 5, scarce.ID: 2})

	_, err := svc.PlaceOrder(context.Background(), userID, pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// Neither product lost stock, even the one that had enough.
	var freshPlenty, freshScarce models.Product
	require.NoError(t, conn.First(&freshPlenty, "id = ?", plenty.ID).Error)
	require.NoError(t, conn.First(&freshScarce, "id = ?", scarce.ID).Error)
	require.Equal(t, 100, freshPlenty.Stock)
	require.Equal(t, 1, freshScarce.Stock)

	var itemCount int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&itemCount).Error)
	require.Equal(t, int64(2), itemCount)
}

func TestPlaceOrderDeletedProductRejected(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 5)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})
	require.NoError(t, conn.Delete(&models.Product{}, "id = ?", product.ID).Error)

	_, err := svc.PlaceOrder(context.Background(), userID, pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, product.ID.String(), details["productId"])
}

func TestPlaceOrderEmptyCartRejected(t *testing.T) {
	t.Parallel()

	svc := newOrderService(t, newTestDB(t))
	_, err := svc.PlaceOrder(context.Background(), uuid.New(), pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPlaceOrderSnapshotsAreImmutable(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "100", 50)
	pct := decimal.RequireFromString("25")
	distributor := &models.Distributor{
		ID:                     uuid.New(),
		Name:                   "Acme",
		EmailDomain:            "acme.example.com",
		DefaultDiscountPercent: &pct,
	}
	require.NoError(t, conn.Create(distributor).Error)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 2})

	order, err := svc.PlaceOrder(ctx, userID, pricing.ForDistributor(distributor.ID), validInput(enums.PaymentMethodInvoice, nil))
	require.NoError(t, err)
	require.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("75")))
	require.True(t, order.Items[0].BasePrice.Equal(decimal.RequireFromString("100")))
	require.True(t, order.TotalPrice.Equal(decimal.RequireFromString("150")))

	// Rewrite every pricing input after placement.
	newPct := decimal.RequireFromString("90")
	require.NoError(t, conn.Model(distributor).Update("default_discount_percent", newPct).Error)
	require.NoError(t, conn.Model(product).Update("base_price", decimal.RequireFromString("1")).Error)

	fresh, err := svc.Get(ctx, order.ID, userID, false)
	require.NoError(t, err)
	require.True(t, fresh.Items[0].Price.Equal(decimal.RequireFromString("75")))
	require.True(t, fresh.Items[0].BasePrice.Equal(decimal.RequireFromString("100")))
	require.True(t, fresh.TotalPrice.Equal(decimal.RequireFromString("150")))
}

func TestPlaceOrderDuplicatePaymentRefReturnsExisting(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 50)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	ref := "pi_" + uuid.NewString()
	first, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, &ref))
	require.NoError(t, err)

	// Retry after the cart was already consumed: same order comes back, no
	// second order and no second stock decrement.
	second, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, &ref))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var orderCount int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.Equal(t, int64(1), orderCount)

	var fresh models.Product
	require.NoError(t, conn.First(&fresh, "id = ?", product.ID).Error)
	require.Equal(t, 49, fresh.Stock)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 50)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	ref := "pi_" + uuid.NewString()
	order, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, &ref))
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)

	first, err := svc.MarkPaid(ctx, ref)
	require.NoError(t, err)
	require.True(t, first.Applied)
	require.Equal(t, enums.OrderStatusPaid, first.Order.Status)

	second, err := svc.MarkPaid(ctx, ref)
	require.NoError(t, err)
	require.False(t, second.Applied)
	require.Equal(t, enums.OrderStatusPaid, second.Order.Status)

	// Exactly one paid event for the reference regardless of replays.
	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events, "event_type = ?", enums.EventOrderPaid).Error)
	require.Len(t, events, 1)
}

func TestMarkPaidGuardedReplayReturnsPaidOrder(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := &stubReplayGuard{}
	svc := newGuardedOrderService(t, conn, guard)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 50)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	ref := "pi_" + uuid.NewString()
	_, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, &ref))
	require.NoError(t, err)

	first, err := svc.MarkPaid(ctx, ref)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := svc.MarkPaid(ctx, ref)
	require.NoError(t, err)
	require.False(t, second.Applied)
	require.Equal(t, enums.OrderStatusPaid, second.Order.Status)
}

func TestMarkPaidRetrySucceedsAfterEarlyWebhook(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := &stubReplayGuard{}
	svc := newGuardedOrderService(t, conn, guard)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 50)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	// The provider's confirmation can land before the order row exists. The
	// failed attempt must not poison the guard for the retry.
	ref := "pi_" + uuid.NewString()
	_, err := svc.MarkPaid(ctx, ref)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	order, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, &ref))
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)

	retry, err := svc.MarkPaid(ctx, ref)
	require.NoError(t, err)
	require.True(t, retry.Applied)
	require.Equal(t, enums.OrderStatusPaid, retry.Order.Status)

	var fresh models.Order
	require.NoError(t, conn.First(&fresh, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPaid, fresh.Status)
}

func TestMarkPaidStaleGuardMarkerDoesNotSwallowConfirmation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := &stubReplayGuard{}
	svc := newGuardedOrderService(t, conn, guard)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 50)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	ref := "pi_" + uuid.NewString()
	order, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodProvider, &ref))
	require.NoError(t, err)

	// A marker can survive a crash after SetNX but before the transaction
	// commits. The pending order must still be confirmable.
	guard.keys = map[string]bool{guard.IdempotencyKey("payment", ref): true}

	result, err := svc.MarkPaid(ctx, ref)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Equal(t, enums.OrderStatusPaid, result.Order.Status)
	require.Equal(t, order.ID, result.Order.ID)
}

func TestMarkPaidUnknownReference(t *testing.T) {
	t.Parallel()

	svc := newOrderService(t, newTestDB(t))
	_, err := svc.MarkPaid(context.Background(), "pi_missing")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGetEnforcesOwnership(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10", 50)
	seedCart(t, conn, userID, map[uuid.UUID]int{product.ID: 1})

	order, err := svc.PlaceOrder(ctx, userID, pricing.Customer(), validInput(enums.PaymentMethodInvoice, nil))
	require.NoError(t, err)

	_, err = svc.Get(ctx, order.ID, uuid.New(), false)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	got, err := svc.Get(ctx, order.ID, uuid.New(), true)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}
