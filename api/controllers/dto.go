package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmoralesdev/tradecart-backend/internal/cart"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

type productResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Category  string          `json:"category"`
	BasePrice decimal.Decimal `json:"base_price"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"price_source"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"is_active"`

	// DiscountTiers is present only when a product-level override applies to
	// the requester, so distributor buyers can see their volume schedule.
	DiscountTiers []tierResponse `json:"discount_tiers,omitempty"`
}

type tierResponse struct {
	MinQty int             `json:"min_qty"`
	MaxQty *int            `json:"max_qty,omitempty"`
	Price  decimal.Decimal `json:"price"`
}

func newProductResponse(product *models.Product, quote *pricing.Quote) productResponse {
	resp := productResponse{
		ID:        product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		Category:  product.Category,
		BasePrice: product.BasePrice,
		Price:     product.BasePrice,
		Source:    string(pricing.SourceBasePrice),
		Stock:     product.Stock,
		IsActive:  product.IsActive,
	}
	if quote == nil {
		return resp
	}
	resp.Price = quote.UnitPrice
	resp.Source = string(quote.Source)
	if quote.Override != nil {
		resp.DiscountTiers = make([]tierResponse, 0, len(quote.Override.Tiers))
		for _, tier := range quote.Override.Tiers {
			resp.DiscountTiers = append(resp.DiscountTiers, tierResponse{
				MinQty: tier.MinQty,
				MaxQty: tier.MaxQty,
				Price:  tier.Price,
			})
		}
	}
	return resp
}

type cartLineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Source    string          `json:"price_source"`
}

type cartResponse struct {
	Items    []cartLineResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

func newCartResponse(view *cart.View) cartResponse {
	resp := cartResponse{Items: []cartLineResponse{}, Subtotal: decimal.Zero}
	if view == nil {
		return resp
	}
	resp.Subtotal = view.Subtotal
	for _, line := range view.Lines {
		resp.Items = append(resp.Items, cartLineResponse{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
			Source:    string(line.Source),
		})
	}
	return resp
}

type orderItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	BasePrice decimal.Decimal `json:"base_price"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Status          enums.OrderStatus   `json:"status"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	PaymentRef      *string             `json:"payment_ref,omitempty"`
	ShippingName    string              `json:"shipping_name"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:              order.ID,
		Status:          order.Status,
		TotalPrice:      order.TotalPrice,
		PaymentRef:      order.PaymentRef,
		ShippingName:    order.ShippingName,
		ShippingAddress: order.ShippingAddress,
		Items:           make([]orderItemResponse, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			BasePrice: item.BasePrice,
		})
	}
	return resp
}

type distributorResponse struct {
	ID                     uuid.UUID        `json:"id"`
	Name                   string           `json:"name"`
	EmailDomain            string           `json:"email_domain"`
	DefaultDiscountPercent *decimal.Decimal `json:"default_discount_percent,omitempty"`
	Domains                []domainResponse `json:"domains,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

type domainResponse struct {
	Host     string `json:"host"`
	Verified bool   `json:"verified"`
}

func newDistributorResponse(distributor *models.Distributor) distributorResponse {
	resp := distributorResponse{
		ID:                     distributor.ID,
		Name:                   distributor.Name,
		EmailDomain:            distributor.EmailDomain,
		DefaultDiscountPercent: distributor.DefaultDiscountPercent,
		CreatedAt:              distributor.CreatedAt,
	}
	for _, domain := range distributor.Domains {
		resp.Domains = append(resp.Domains, domainResponse{Host: domain.Host, Verified: domain.Verified})
	}
	return resp
}

type categoryDiscountResponse struct {
	Category        string          `json:"category"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newNotificationResponse(row models.Notification) notificationResponse {
	return notificationResponse{
		ID:        row.ID,
		Type:      string(row.Type),
		Title:     row.Title,
		Message:   row.Message,
		ReadAt:    row.ReadAt,
		CreatedAt: row.CreatedAt,
	}
}

type listResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}
