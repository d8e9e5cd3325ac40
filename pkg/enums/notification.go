package enums

// NotificationType names the notification kinds the order consumers produce.
type NotificationType string

const (
	NotificationOrderPlaced NotificationType = "order_placed"
	NotificationOrderPaid   NotificationType = "order_paid"
)
