package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryDiscount is a flat percent discount a distributor receives on every
// product in a category. The (distributor_id, category) pair is unique and
// load-bearing for upsert semantics.
type CategoryDiscount struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DistributorID   uuid.UUID       `gorm:"column:distributor_id;type:uuid;not null;uniqueIndex:idx_category_discount_pair"`
	Category        string          `gorm:"column:category;not null;uniqueIndex:idx_category_discount_pair"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
