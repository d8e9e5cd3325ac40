package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
)

// QuoteSource names which precedence layer produced the unit price.
type QuoteSource string

const (
	SourceTier             QuoteSource = "tier"
	SourceCustomPrice      QuoteSource = "custom_price"
	SourceCategoryDiscount QuoteSource = "category_discount"
	SourceDefaultDiscount  QuoteSource = "default_discount"
	SourceBasePrice        QuoteSource = "base_price"
)

// Quote is the result of one price resolution.
type Quote struct {
	Product   *models.Product
	UnitPrice decimal.Decimal
	BasePrice decimal.Decimal
	Source    QuoteSource

	// Override is populated when a product-level override applied, so read
	// paths can expose the tier schedule to distributor viewers.
	Override *models.DistributorPrice
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ruleReader interface {
	FindDistributorPrice(ctx context.Context, productID, distributorID uuid.UUID) (*models.DistributorPrice, error)
	FindCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string) (*models.CategoryDiscount, error)
	FindDistributor(ctx context.Context, id uuid.UUID) (*models.Distributor, error)
}

// Resolver computes the single authoritative unit price for a product,
// requester, and quantity. It performs no mutation and is safe under
// arbitrary concurrent callers; every call re-reads the committed rules.
type Resolver struct {
	catalog productLoader
	rules   ruleReader
}

func NewResolver(catalog productLoader, rules ruleReader) (*Resolver, error) {
	if catalog == nil {
		return nil, errors.New("catalog loader required")
	}
	if rules == nil {
		return nil, errors.New("rule reader required")
	}
	return &Resolver{catalog: catalog, rules: rules}, nil
}

var oneHundred = decimal.NewFromInt(100)

// Resolve applies the precedence chain: product override (tier, then custom
// price) > category discount > distributor default discount > base price.
// The first applicable layer wins outright; layers never blend. Guests and
// plain customers always land on base price.
func (r *Resolver) Resolve(ctx context.Context, productID uuid.UUID, requester RequesterContext, quantity int) (*Quote, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	product, err := r.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	quote := &Quote{
		Product:   product,
		BasePrice: product.BasePrice,
		UnitPrice: product.BasePrice,
		Source:    SourceBasePrice,
	}

	distributorID := requester.EffectiveDistributorID()
	if distributorID == nil {
		return quote, nil
	}

	override, err := r.rules.FindDistributorPrice(ctx, productID, *distributorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product override")
	}
	if override != nil {
		// The override supersedes every lower layer even when no tier
		// matches the quantity.
		quote.Override = override
		for _, tier := range override.Tiers {
			if tier.Contains(quantity) {
				quote.UnitPrice = tier.Price
				quote.Source = SourceTier
				return quote, nil
			}
		}
		quote.UnitPrice = override.CustomPrice
		quote.Source = SourceCustomPrice
		return quote, nil
	}

	categoryDiscount, err := r.rules.FindCategoryDiscount(ctx, *distributorID, product.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category discount")
	}
	if categoryDiscount != nil && categoryDiscount.DiscountPercent.IsPositive() {
		quote.UnitPrice = applyPercentDiscount(product.BasePrice, categoryDiscount.DiscountPercent)
		quote.Source = SourceCategoryDiscount
		return quote, nil
	}

	distributor, err := r.rules.FindDistributor(ctx, *distributorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor")
	}
	if distributor != nil && distributor.DefaultDiscountPercent != nil && distributor.DefaultDiscountPercent.IsPositive() {
		quote.UnitPrice = applyPercentDiscount(product.BasePrice, *distributor.DefaultDiscountPercent)
		quote.Source = SourceDefaultDiscount
		return quote, nil
	}

	return quote, nil
}

func applyPercentDiscount(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(1).Sub(percent.Div(oneHundred)))
}
