package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/outbox"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls++
}

func newAdminService(t *testing.T, conn *gorm.DB, stats cacheInvalidator) AdminService {
	t.Helper()
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewAdminService(NewRepository(conn), catalog.NewRepository(conn), db.NewFromGorm(conn), events, stats)
	require.NoError(t, err)
	return svc
}

func countOutboxEvents(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	return count
}

func TestAdminUpsertCategoryDiscountUpdatesExistingPair(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	distributor := seedDistributor(t, conn, nil)
	stats := &countingInvalidator{}
	svc := newAdminService(t, conn, stats)

	first, err := svc.UpsertCategoryDiscount(context.Background(), distributor.ID, "hardware", decimal.RequireFromString("10"))
	require.NoError(t, err)

	second, err := svc.UpsertCategoryDiscount(context.Background(), distributor.ID, "hardware", decimal.RequireFromString("25"))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.DiscountPercent.Equal(decimal.RequireFromString("25")))

	var count int64
	require.NoError(t, conn.Model(&models.CategoryDiscount{}).
		Where("distributor_id = ? AND category = ?", distributor.ID, "hardware").
		Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.EqualValues(t, 2, countOutboxEvents(t, conn))
	require.Equal(t, 2, stats.calls)
}

func TestAdminSetDefaultDiscountValidatesRange(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	distributor := seedDistributor(t, conn, nil)
	svc := newAdminService(t, conn, nil)

	over := decimal.RequireFromString("120")
	_, err := svc.SetDefaultDiscount(context.Background(), distributor.ID, &over)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	negative := decimal.RequireFromString("-1")
	_, err = svc.SetDefaultDiscount(context.Background(), distributor.ID, &negative)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	valid := decimal.RequireFromString("15")
	updated, err := svc.SetDefaultDiscount(context.Background(), distributor.ID, &valid)
	require.NoError(t, err)
	require.NotNil(t, updated.DefaultDiscountPercent)
	require.True(t, updated.DefaultDiscountPercent.Equal(valid))

	cleared, err := svc.SetDefaultDiscount(context.Background(), distributor.ID, nil)
	require.NoError(t, err)
	require.Nil(t, cleared.DefaultDiscountPercent)
}

func TestAdminPutProductPriceRejectsBadTiers(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	distributor := seedDistributor(t, conn, nil)
	product := seedProduct(t, conn, "100.00", "hardware")
	svc := newAdminService(t, conn, nil)

	_, err := svc.PutProductPrice(context.Background(), distributor.ID, product.ID, ProductPriceInput{
		CustomPrice: decimal.RequireFromString("80.00"),
		Tiers:       []TierInput{{MinQty: 0, Price: decimal.RequireFromString("70.00")}},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.PutProductPrice(context.Background(), distributor.ID, product.ID, ProductPriceInput{
		CustomPrice: decimal.RequireFromString("80.00"),
		Tiers:       []TierInput{{MinQty: 10, MaxQty: intPtr(5), Price: decimal.RequireFromString("70.00")}},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAdminPutProductPriceReplacesTierSchedule(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	distributor := seedDistributor(t, conn, nil)
	product := seedProduct(t, conn, "100.00", "hardware")
	svc := newAdminService(t, conn, nil)

	_, err := svc.PutProductPrice(context.Background(), distributor.ID, product.ID, ProductPriceInput{
		CustomPrice: decimal.RequireFromString("90.00"),
		Tiers: []TierInput{
			{MinQty: 1, MaxQty: intPtr(9), Price: decimal.RequireFromString("85.00")},
			{MinQty: 10, Price: decimal.RequireFromString("80.00")},
		},
	})
	require.NoError(t, err)

	replaced, err := svc.PutProductPrice(context.Background(), distributor.ID, product.ID, ProductPriceInput{
		CustomPrice: decimal.RequireFromString("95.00"),
		Tiers:       []TierInput{{MinQty: 5, Price: decimal.RequireFromString("88.00")}},
	})
	require.NoError(t, err)

	var overrides int64
	require.NoError(t, conn.Model(&models.DistributorPrice{}).
		Where("product_id = ? AND distributor_id = ?", product.ID, distributor.ID).
		Count(&overrides).Error)
	require.EqualValues(t, 1, overrides)

	var tiers int64
	require.NoError(t, conn.Model(&models.DiscountTier{}).
		Where("distributor_price_id = ?", replaced.ID).
		Count(&tiers).Error)
	require.EqualValues(t, 1, tiers)

	resolver := newResolver(t, conn)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 5)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("88.00")))
	require.Equal(t, SourceTier, quote.Source)
}

func TestAdminDeleteProductPriceRestoresLowerLayers(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	distributor := seedDistributor(t, conn, strPtr("20"))
	product := seedProduct(t, conn, "100.00", "hardware")
	svc := newAdminService(t, conn, nil)

	_, err := svc.PutProductPrice(context.Background(), distributor.ID, product.ID, ProductPriceInput{
		CustomPrice: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	resolver := newResolver(t, conn)
	quote, err := resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("50.00")))

	require.NoError(t, svc.DeleteProductPrice(context.Background(), distributor.ID, product.ID))

	quote, err = resolver.Resolve(context.Background(), product.ID, ForDistributor(distributor.ID), 1)
	require.NoError(t, err)
	require.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("80.00")))
	require.Equal(t, SourceDefaultDiscount, quote.Source)
}

func TestAdminMutationsRequireKnownDistributor(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	svc := newAdminService(t, conn, nil)

	_, err := svc.UpsertCategoryDiscount(context.Background(), uuid.New(), "hardware", decimal.RequireFromString("10"))
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.ListCategoryDiscounts(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
