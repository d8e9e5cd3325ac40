package enums

// OutboxEventType names the domain events emitted through the transactional
// outbox.
type OutboxEventType string

const (
	EventOrderPlaced         OutboxEventType = "order.placed"
	EventOrderPaid           OutboxEventType = "order.paid"
	EventPricingRulesChanged OutboxEventType = "pricing.rules.changed"
)

type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateDistributor OutboxAggregateType = "distributor"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
	OutboxStatusTerminal  OutboxStatus = "terminal"
)
