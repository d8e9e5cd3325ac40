package stats

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stats_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Distributor{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func TestBuildDashboardAggregates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	productA := &models.Product{ID: uuid.New(), Name: "Widget", SKU: "W-1", Category: "Misc", BasePrice: decimal.RequireFromString("10"), Stock: 5, IsActive: true}
	productB := &models.Product{ID: uuid.New(), Name: "Gadget", SKU: "G-1", Category: "Misc", BasePrice: decimal.RequireFromString("20"), Stock: 5, IsActive: false}
	require.NoError(t, db.Create(productA).Error)
	require.NoError(t, db.Create(productB).Error)
	require.NoError(t, db.Create(&models.Distributor{ID: uuid.New(), Name: "Acme", EmailDomain: "acme.example.com"}).Error)

	paid := &models.Order{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Status:          enums.OrderStatusPaid,
		TotalPrice:      decimal.RequireFromString("30"),
		ShippingName:    "Jane",
		ShippingAddress: "1 Main St",
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: productA.ID, Name: productA.Name, Quantity: 3, Price: decimal.RequireFromString("10"), BasePrice: decimal.RequireFromString("10")},
		},
	}
	pending := &models.Order{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Status:          enums.OrderStatusPendingPayment,
		TotalPrice:      decimal.RequireFromString("20"),
		ShippingName:    "John",
		ShippingAddress: "2 Main St",
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: productB.ID, Name: productB.Name, Quantity: 1, Price: decimal.RequireFromString("20"), BasePrice: decimal.RequireFromString("20")},
		},
	}
	require.NoError(t, db.Create(paid).Error)
	require.NoError(t, db.Create(pending).Error)

	dash, err := NewService(db).BuildDashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), dash.TotalOrders)
	require.Equal(t, int64(1), dash.PaidOrders)
	require.Equal(t, int64(1), dash.PendingOrders)
	require.True(t, dash.TotalRevenue.Equal(decimal.RequireFromString("30")))
	require.Equal(t, int64(1), dash.ActiveProducts)
	require.Equal(t, int64(1), dash.Distributors)
	require.Len(t, dash.TopProducts, 2)
	require.Equal(t, productA.ID, dash.TopProducts[0].ProductID)
	require.Equal(t, int64(3), dash.TopProducts[0].Units)
}
