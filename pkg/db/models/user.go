package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

// User is an account. DistributorID is set at signup when the email domain
// matches a registered distributor, which is what makes B2B pricing follow the
// session rather than the storefront host.
type User struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email         string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	Name          string     `gorm:"column:name;not null"`
	Role          enums.Role `gorm:"column:role;not null;default:'customer'"`
	DistributorID *uuid.UUID `gorm:"column:distributor_id;type:uuid;index"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
