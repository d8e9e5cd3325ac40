package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DistributorPrice is a product-level override for one distributor. Its
// presence fully supersedes category and default discounts, even when no tier
// matches the requested quantity.
type DistributorPrice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_distributor_price_pair"`
	DistributorID uuid.UUID       `gorm:"column:distributor_id;type:uuid;not null;uniqueIndex:idx_distributor_price_pair"`
	CustomPrice   decimal.Decimal `gorm:"column:custom_price;type:numeric(12,2);not null"`
	Tiers         []DiscountTier  `gorm:"foreignKey:DistributorPriceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// DiscountTier is one quantity interval of a product override. MaxQty nil
// means unbounded. Tiers are ordered by Position and need not be contiguous;
// the first tier containing the requested quantity wins.
type DiscountTier struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DistributorPriceID uuid.UUID       `gorm:"column:distributor_price_id;type:uuid;not null;index"`
	MinQty             int             `gorm:"column:min_qty;not null"`
	MaxQty             *int            `gorm:"column:max_qty"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Position           int             `gorm:"column:position;not null;default:0"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Contains reports whether qty falls inside the tier interval.
func (t DiscountTier) Contains(qty int) bool {
	if qty < t.MinQty {
		return false
	}
	if t.MaxQty != nil && qty > *t.MaxQty {
		return false
	}
	return true
}
