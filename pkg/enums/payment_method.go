package enums

// PaymentMethod selects the initial status of a placed order: asynchronous
// provider flows start at pending, invoice-style flows at pending_payment.
type PaymentMethod string

const (
	PaymentMethodProvider PaymentMethod = "provider"
	PaymentMethodInvoice  PaymentMethod = "invoice"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodProvider || m == PaymentMethodInvoice
}

// InitialOrderStatus maps the payment path to the order's starting state.
func (m PaymentMethod) InitialOrderStatus() OrderStatus {
	if m == PaymentMethodInvoice {
		return OrderStatusPendingPayment
	}
	return OrderStatusPending
}
