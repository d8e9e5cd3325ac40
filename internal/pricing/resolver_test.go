package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Distributor{},
		&models.DistributorDomain{},
		&models.CategoryDiscount{},
		&models.DistributorPrice{},
		&models.DiscountTier{},
		&models.OutboxEvent{},
	))
	return db
}

func newResolver(t *testing.T, db *gorm.DB) *Resolver {
	t.Helper()
	resolver, err := NewResolver(catalog.NewRepository(db), NewRepository(db))
	require.NoError(t, err)
	return resolver
}

func seedProduct(t *testing.T, db *gorm.DB, basePrice string, category string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Widget",
		SKU:       "SKU-" + uuid.NewString()[:8],
		Category:  category,
		BasePrice: decimal.RequireFromString(basePrice),
		Stock:     100,
		IsActive:  true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedDistributor(t *testing.T, db *gorm.DB, defaultPct *string) *models.Distributor {
	t.Helper()
	distributor := &models.Distributor{
		ID:          uuid.New(),
		Name:        "Acme Wholesale",
		EmailDomain: "acme-" + uuid.NewString()[:8] + ".example.com",
	}
	if defaultPct != nil {
		pct := decimal.RequireFromString(*defaultPct)
		distributor.DefaultDiscountPercent = &pct
	}
	require.NoError(t, db.Create(distributor).Error)
	return distributor
}

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }

func TestResolveGuestAndCustomerAlwaysBasePrice(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "59.99", "Electronics")
	distributor := seedDistributor(t, db, strPtr("40"))

	// Rules configured elsewhere must never leak into guest pricing.
	require.NoError(t, db.Create(&models.CategoryDiscount{
		DistributorID:   distributor.ID,
		Category:        "Electronics",
		DiscountPercent: decimal.RequireFromString("30"),
	}).Error)

	resolver := newResolver(t, db)

	for _, requester := range []RequesterContext{Guest(), Customer()} {
		for _, qty := range []int{0, 1, 42, 5000} {
			quote, err := resolver.Resolve(ctx, product.ID, requester, qty)
			require.NoError(t, err)
			require.True(t, quote.UnitPrice.Equal(product.BasePrice),
				"expected base price for role %s qty %d, got %s", requester.Role, qty, quote.UnitPrice)
			require.Equal(t, SourceBasePrice, quote.Source)
		}
	}
}

func TestResolveDefaultDiscountArithmetic(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "100", "Hardware")
	distributor := seedDistributor(t, db, strPtr("25"))

	resolver := newResolver(t, db)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("75")),
		"expected 75, got %s", quote.UnitPrice)
	require.Equal(t, SourceDefaultDiscount, quote.Source)
}

func TestResolveCategoryDiscountBeatsDefault(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "200", "Lighting")
	distributor := seedDistributor(t, db, strPtr("25"))
	require.NoError(t, db.Create(&models.CategoryDiscount{
		DistributorID:   distributor.ID,
		Category:        "Lighting",
		DiscountPercent: decimal.RequireFromString("10"),
	}).Error)

	resolver := newResolver(t, db)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("180")),
		"expected 180, got %s", quote.UnitPrice)
	require.Equal(t, SourceCategoryDiscount, quote.Source)
}

func TestResolveProductOverrideBeatsEverything(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "100", "Lighting")
	distributor := seedDistributor(t, db, strPtr("50"))
	require.NoError(t, db.Create(&models.CategoryDiscount{
		DistributorID:   distributor.ID,
		Category:        "Lighting",
		DiscountPercent: decimal.RequireFromString("60"),
	}).Error)
	override := &models.DistributorPrice{
		ID:            uuid.New(),
		ProductID:     product.ID,
		DistributorID: distributor.ID,
		CustomPrice:   decimal.RequireFromString("95"),
	}
	require.NoError(t, db.Create(override).Error)

	resolver := newResolver(t, db)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("95")),
		"expected override custom price 95, got %s", quote.UnitPrice)
	require.Equal(t, SourceCustomPrice, quote.Source)
	require.NotNil(t, quote.Override)
}

func TestResolveTierContainment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "120", "Bulk")
	distributor := seedDistributor(t, db, nil)
	override := &models.DistributorPrice{
		ID:            uuid.New(),
		ProductID:     product.ID,
		DistributorID: distributor.ID,
		CustomPrice:   decimal.RequireFromString("100"),
	}
	require.NoError(t, db.Create(override).Error)
	tiers := []models.DiscountTier{
		{DistributorPriceID: override.ID, MinQty: 1, MaxQty: intPtr(10), Price: decimal.RequireFromString("90"), Position: 0},
		{DistributorPriceID: override.ID, MinQty: 11, MaxQty: intPtr(50), Price: decimal.RequireFromString("80"), Position: 1},
		{DistributorPriceID: override.ID, MinQty: 51, MaxQty: nil, Price: decimal.RequireFromString("70"), Position: 2},
	}
	require.NoError(t, db.Create(&tiers).Error)

	resolver := newResolver(t, db)
	ctx := context.Background()
	requester := ForDistributor(distributor.ID)

	cases := []struct {
		qty    int
		want   string
		source QuoteSource
	}{
		{qty: 5, want: "90", source: SourceTier},
		{qty: 10, want: "90", source: SourceTier},
		{qty: 11, want: "80", source: SourceTier},
		{qty: 1000, want: "70", source: SourceTier},
		// No tier starts below 1: qty 0 falls back to the custom price,
		// never to category/default layers.
		{qty: 0, want: "100", source: SourceCustomPrice},
	}
	for _, tc := range cases {
		quote, err := resolver.Resolve(ctx, product.ID, requester, tc.qty)
		require.NoError(t, err)
		require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString(tc.want)),
			"qty %d: expected %s, got %s", tc.qty, tc.want, quote.UnitPrice)
		require.Equal(t, tc.source, quote.Source, "qty %d", tc.qty)
	}
}

func TestResolveDegenerateTierListStillSupersedes(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "100", "Bulk")
	distributor := seedDistributor(t, db, strPtr("50"))
	require.NoError(t, db.Create(&models.CategoryDiscount{
		DistributorID:   distributor.ID,
		Category:        "Bulk",
		DiscountPercent: decimal.RequireFromString("50"),
	}).Error)
	override := &models.DistributorPrice{
		ID:            uuid.New(),
		ProductID:     product.ID,
		DistributorID: distributor.ID,
		CustomPrice:   decimal.RequireFromString("99"),
	}
	require.NoError(t, db.Create(override).Error)
	require.NoError(t, db.Create(&models.DiscountTier{
		DistributorPriceID: override.ID,
		MinQty:             100,
		MaxQty:             intPtr(200),
		Price:              decimal.RequireFromString("42"),
	}).Error)

	resolver := newResolver(t, db)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 5)
	require.NoError(t, err)
	// Even though the category discount would be cheaper, the override wins.
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("99")),
		"expected 99, got %s", quote.UnitPrice)
	require.Equal(t, SourceCustomPrice, quote.Source)
}

func TestResolveTenantContextUsesDistributorRules(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "80", "Lighting")
	distributor := seedDistributor(t, db, strPtr("10"))

	resolver := newResolver(t, db)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForTenant(distributor.ID), 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("72")),
		"expected 72, got %s", quote.UnitPrice)
	require.Equal(t, SourceDefaultDiscount, quote.Source)
}

func TestResolveSessionDistributorWinsOverTenant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "100", "Lighting")
	sessionDist := seedDistributor(t, db, strPtr("20"))
	tenantDist := seedDistributor(t, db, strPtr("90"))

	resolver := newResolver(t, db)
	requester := ForDistributor(sessionDist.ID).WithTenant(tenantDist.ID)
	quote, err := resolver.Resolve(context.Background(), product.ID, requester, 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("80")),
		"session affiliation must win over tenant host, got %s", quote.UnitPrice)
}

func TestResolveMissingProductIsNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	resolver := newResolver(t, db)

	_, err := resolver.Resolve(context.Background(), uuid.New(), Guest(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestResolveNegativeQuantityRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "10", "Misc")
	resolver := newResolver(t, db)

	_, err := resolver.Resolve(context.Background(), product.ID, Guest(), -1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestResolveZeroPercentDefaultFallsToBase(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "100", "Misc")
	distributor := seedDistributor(t, db, strPtr("0"))

	resolver := newResolver(t, db)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 1)
	require.NoError(t, err)
	require.Equal(t, SourceBasePrice, quote.Source)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("100")))
}
