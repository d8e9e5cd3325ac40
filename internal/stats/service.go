package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

// Dashboard is the admin overview payload served from the cache.
type Dashboard struct {
	TotalOrders    int64           `json:"totalOrders"`
	PaidOrders     int64           `json:"paidOrders"`
	PendingOrders  int64           `json:"pendingOrders"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	ActiveProducts int64           `json:"activeProducts"`
	Distributors   int64           `json:"distributors"`
	TopProducts    []ProductSales  `json:"topProducts"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// ProductSales is one row of the best-seller ranking.
type ProductSales struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Service computes dashboard aggregates straight from the database. It is
// always wrapped by a Cache; nothing latency-sensitive calls it directly.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

const topProductLimit = 5

// BuildDashboard runs the aggregate queries for one snapshot.
func (s *Service) BuildDashboard(ctx context.Context) (*Dashboard, error) {
	dash := &Dashboard{TotalRevenue: decimal.Zero, GeneratedAt: time.Now().UTC()}
	qb := s.db.WithContext(ctx)

	if err := qb.Model(&models.Order{}).Count(&dash.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := qb.Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusPaid).
		Count(&dash.PaidOrders).Error; err != nil {
		return nil, err
	}
	if err := qb.Model(&models.Order{}).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPendingPayment}).
		Count(&dash.PendingOrders).Error; err != nil {
		return nil, err
	}

	var revenue struct {
		Total decimal.Decimal
	}
	err := qb.Model(&models.Order{}).
		Select("COALESCE(SUM(total_price), 0) AS total").
		Where("status = ?", enums.OrderStatusPaid).
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	dash.TotalRevenue = revenue.Total

	if err := qb.Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&dash.ActiveProducts).Error; err != nil {
		return nil, err
	}
	if err := qb.Model(&models.Distributor{}).Count(&dash.Distributors).Error; err != nil {
		return nil, err
	}

	var top []struct {
		ProductID uuid.UUID
		Name      string
		Units     int64
		Revenue   decimal.Decimal
	}
	err = qb.Model(&models.OrderItem{}).
		Select("product_id, name, SUM(quantity) AS units, SUM(price * quantity) AS revenue").
		Group("product_id, name").
		Order("units DESC").
		Limit(topProductLimit).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	for _, row := range top {
		dash.TopProducts = append(dash.TopProducts, ProductSales{
			ProductID: row.ProductID,
			Name:      row.Name,
			Units:     row.Units,
			Revenue:   row.Revenue,
		})
	}

	return dash, nil
}
