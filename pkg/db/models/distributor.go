package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Distributor is a B2B tenant. EmailDomain is lowercase-normalized and unique;
// DefaultDiscountPercent is the company-wide fallback discount (0-100, nil
// means none).
type Distributor struct {
	ID                     uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name                   string             `gorm:"column:name;not null"`
	EmailDomain            string             `gorm:"column:email_domain;not null;uniqueIndex"`
	DefaultDiscountPercent *decimal.Decimal   `gorm:"column:default_discount_percent;type:numeric(5,2)"`
	Domains                []DistributorDomain `gorm:"foreignKey:DistributorID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// DistributorDomain maps a verified storefront host to its distributor so
// unauthenticated traffic on that host resolves to tenant pricing.
type DistributorDomain struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DistributorID uuid.UUID `gorm:"column:distributor_id;type:uuid;not null;index"`
	Host          string    `gorm:"column:host;not null;uniqueIndex"`
	Verified      bool      `gorm:"column:verified;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
