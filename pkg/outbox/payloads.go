package outbox

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent announces a committed order so notification and reporting
// consumers can react after the transaction.
type OrderPlacedEvent struct {
	OrderID    uuid.UUID       `json:"orderId"`
	UserID     uuid.UUID       `json:"userId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ItemCount  int             `json:"itemCount"`
}

// OrderPaidEvent announces a successful payment confirmation.
type OrderPaidEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	UserID     uuid.UUID `json:"userId"`
	PaymentRef string    `json:"paymentRef"`
}

// PricingRulesChangedEvent marks a distributor's rule set as stale for any
// caching consumer.
type PricingRulesChangedEvent struct {
	DistributorID uuid.UUID `json:"distributorId"`
	Scope         string    `json:"scope"`
}
