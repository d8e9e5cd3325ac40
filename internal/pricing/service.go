package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// AdminService is the write surface over the pricing rule store. The resolver
// stays correct against these mutations because every write commits as one
// transaction and the resolver re-reads committed state per call.
type AdminService interface {
	SetDefaultDiscount(ctx context.Context, distributorID uuid.UUID, percent *decimal.Decimal) (*models.Distributor, error)
	UpsertCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string, percent decimal.Decimal) (*models.CategoryDiscount, error)
	DeleteCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string) error
	ListCategoryDiscounts(ctx context.Context, distributorID uuid.UUID) ([]models.CategoryDiscount, error)
	PutProductPrice(ctx context.Context, distributorID, productID uuid.UUID, input ProductPriceInput) (*models.DistributorPrice, error)
	DeleteProductPrice(ctx context.Context, distributorID, productID uuid.UUID) error
}

// ProductPriceInput carries the custom price and the full replacement tier
// schedule for one (product, distributor) pair.
type ProductPriceInput struct {
	CustomPrice decimal.Decimal
	Tiers       []TierInput
}

// TierInput is a validated tier row. MaxQty nil means unbounded.
type TierInput struct {
	MinQty int
	MaxQty *int
	Price  decimal.Decimal
}

type adminService struct {
	repo    *Repository
	catalog productLoader
	tx      txRunner
	events  outboxEmitter
	stats   cacheInvalidator
}

func NewAdminService(repo *Repository, catalog productLoader, tx txRunner, events outboxEmitter, stats cacheInvalidator) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &adminService{repo: repo, catalog: catalog, tx: tx, events: events, stats: stats}, nil
}

func validatePercent(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}
	return nil
}

func validateTiers(tiers []TierInput) error {
	for i, tier := range tiers {
		if tier.MinQty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "tier minQty must be at least 1").
				WithDetails(map[string]any{"tier": i})
		}
		if tier.MaxQty != nil && *tier.MaxQty < tier.MinQty {
			return pkgerrors.New(pkgerrors.CodeValidation, "tier maxQty must not be below minQty").
				WithDetails(map[string]any{"tier": i})
		}
		if tier.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "tier price must be non-negative").
				WithDetails(map[string]any{"tier": i})
		}
	}
	return nil
}

func (s *adminService) requireDistributor(ctx context.Context, id uuid.UUID) (*models.Distributor, error) {
	distributor, err := s.repo.FindDistributor(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor")
	}
	if distributor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "distributor not found")
	}
	return distributor, nil
}

func (s *adminService) SetDefaultDiscount(ctx context.Context, distributorID uuid.UUID, percent *decimal.Decimal) (*models.Distributor, error) {
	if percent != nil {
		if err := validatePercent(*percent); err != nil {
			return nil, err
		}
	}

	distributor, err := s.requireDistributor(ctx, distributorID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		distributor.DefaultDiscountPercent = percent
		if err := tx.WithContext(ctx).Save(distributor).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save default discount")
		}
		return s.emitRulesChanged(ctx, tx, distributorID, "default_discount")
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return distributor, nil
}

func (s *adminService) UpsertCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string, percent decimal.Decimal) (*models.CategoryDiscount, error) {
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if err := validatePercent(percent); err != nil {
		return nil, err
	}
	if _, err := s.requireDistributor(ctx, distributorID); err != nil {
		return nil, err
	}

	var saved *models.CategoryDiscount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		discount, err := repo.UpsertCategoryDiscount(ctx, &models.CategoryDiscount{
			DistributorID:   distributorID,
			Category:        category,
			DiscountPercent: percent,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert category discount")
		}
		saved = discount
		return s.emitRulesChanged(ctx, tx, distributorID, "category_discount")
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return saved, nil
}

func (s *adminService) DeleteCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string) error {
	if _, err := s.requireDistributor(ctx, distributorID); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteCategoryDiscount(ctx, distributorID, category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category discount")
		}
		return s.emitRulesChanged(ctx, tx, distributorID, "category_discount")
	})
	if err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *adminService) ListCategoryDiscounts(ctx context.Context, distributorID uuid.UUID) ([]models.CategoryDiscount, error) {
	if _, err := s.requireDistributor(ctx, distributorID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListCategoryDiscounts(ctx, distributorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category discounts")
	}
	return rows, nil
}

func (s *adminService) PutProductPrice(ctx context.Context, distributorID, productID uuid.UUID, input ProductPriceInput) (*models.DistributorPrice, error) {
	if input.CustomPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom price must be non-negative")
	}
	if err := validateTiers(input.Tiers); err != nil {
		return nil, err
	}
	if _, err := s.requireDistributor(ctx, distributorID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.FindByID(ctx, productID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	tiers := make([]models.DiscountTier, len(input.Tiers))
	for i, tier := range input.Tiers {
		tiers[i] = models.DiscountTier{
			MinQty: tier.MinQty,
			MaxQty: tier.MaxQty,
			Price:  tier.Price,
		}
	}

	var saved *models.DistributorPrice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		override, err := s.repo.WithTx(tx).ReplaceDistributorPrice(ctx, &models.DistributorPrice{
			ProductID:     productID,
			DistributorID: distributorID,
			CustomPrice:   input.CustomPrice,
		}, tiers)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace product price")
		}
		saved = override
		return s.emitRulesChanged(ctx, tx, distributorID, "product_price")
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return saved, nil
}

func (s *adminService) DeleteProductPrice(ctx context.Context, distributorID, productID uuid.UUID) error {
	if _, err := s.requireDistributor(ctx, distributorID); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteDistributorPrice(ctx, productID, distributorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product price")
		}
		return s.emitRulesChanged(ctx, tx, distributorID, "product_price")
	})
	if err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *adminService) emitRulesChanged(ctx context.Context, tx *gorm.DB, distributorID uuid.UUID, scope string) error {
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPricingRulesChanged,
		AggregateType: enums.AggregateDistributor,
		AggregateID:   distributorID,
		Data: outbox.PricingRulesChangedEvent{
			DistributorID: distributorID,
			Scope:         scope,
		},
		Version: 1,
	})
}

func (s *adminService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}
