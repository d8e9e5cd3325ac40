package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
)

// Repository reads and writes the layered pricing rules for distributors.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindDistributorPrice loads the product override with its tiers in position
// order. Returns (nil, nil) when no override exists.
func (r *Repository) FindDistributorPrice(ctx context.Context, productID, distributorID uuid.UUID) (*models.DistributorPrice, error) {
	var override models.DistributorPrice
	err := r.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&override, "product_id = ? AND distributor_id = ?", productID, distributorID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

// FindCategoryDiscount returns (nil, nil) when the pair has no discount.
func (r *Repository) FindCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string) (*models.CategoryDiscount, error) {
	var discount models.CategoryDiscount
	err := r.db.WithContext(ctx).
		First(&discount, "distributor_id = ? AND category = ?", distributorID, category).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// FindDistributor returns (nil, nil) on unknown id so the resolver can fall
// through to base price for stale affiliations.
func (r *Repository) FindDistributor(ctx context.Context, id uuid.UUID) (*models.Distributor, error) {
	var distributor models.Distributor
	err := r.db.WithContext(ctx).First(&distributor, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &distributor, nil
}

// UpsertCategoryDiscount creates or refreshes the unique
// (distributor, category) row.
func (r *Repository) UpsertCategoryDiscount(ctx context.Context, discount *models.CategoryDiscount) (*models.CategoryDiscount, error) {
	var existing models.CategoryDiscount
	err := r.db.WithContext(ctx).
		First(&existing, "distributor_id = ? AND category = ?", discount.DistributorID, discount.Category).
		Error
	switch {
	case err == nil:
		existing.DiscountPercent = discount.DiscountPercent
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(discount).Error; err != nil {
			return nil, err
		}
		return discount, nil
	default:
		return nil, err
	}
}

// DeleteCategoryDiscount removes the pair row; deleting a missing pair is a
// no-op.
func (r *Repository) DeleteCategoryDiscount(ctx context.Context, distributorID uuid.UUID, category string) error {
	return r.db.WithContext(ctx).
		Where("distributor_id = ? AND category = ?", distributorID, category).
		Delete(&models.CategoryDiscount{}).
		Error
}

// ListCategoryDiscounts returns all category rules for a distributor.
func (r *Repository) ListCategoryDiscounts(ctx context.Context, distributorID uuid.UUID) ([]models.CategoryDiscount, error) {
	var rows []models.CategoryDiscount
	err := r.db.WithContext(ctx).
		Where("distributor_id = ?", distributorID).
		Order("category ASC").
		Find(&rows).
		Error
	return rows, err
}

// ReplaceDistributorPrice upserts the product override and replaces its tier
// list wholesale.
func (r *Repository) ReplaceDistributorPrice(ctx context.Context, override *models.DistributorPrice, tiers []models.DiscountTier) (*models.DistributorPrice, error) {
	tx := r.db.WithContext(ctx)

	var existing models.DistributorPrice
	err := tx.First(&existing, "product_id = ? AND distributor_id = ?", override.ProductID, override.DistributorID).Error
	switch {
	case err == nil:
		existing.CustomPrice = override.CustomPrice
		if err := tx.Save(&existing).Error; err != nil {
			return nil, err
		}
		override = &existing
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(override).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := tx.Where("distributor_price_id = ?", override.ID).Delete(&models.DiscountTier{}).Error; err != nil {
		return nil, err
	}
	for i := range tiers {
		tiers[i].DistributorPriceID = override.ID
		tiers[i].Position = i
	}
	if len(tiers) > 0 {
		if err := tx.Create(&tiers).Error; err != nil {
			return nil, err
		}
	}
	override.Tiers = tiers
	return override, nil
}

// DeleteDistributorPrice removes the override and, via cascade, its tiers.
func (r *Repository) DeleteDistributorPrice(ctx context.Context, productID, distributorID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	var override models.DistributorPrice
	err := tx.First(&override, "product_id = ? AND distributor_id = ?", productID, distributorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := tx.Where("distributor_price_id = ?", override.ID).Delete(&models.DiscountTier{}).Error; err != nil {
		return err
	}
	return tx.Delete(&override).Error
}
