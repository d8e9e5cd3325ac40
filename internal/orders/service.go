package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/internal/cart"
	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/pkg/config"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/outbox"
	"github.com/rmoralesdev/tradecart-backend/pkg/pagination"
)

const webhookReplayTTL = 24 * time.Hour

type boundedTxRunner interface {
	WithBoundedTx(ctx context.Context, lockWait, budget time.Duration, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// PlaceOrderInput carries everything checkout needs beyond the cart itself.
type PlaceOrderInput struct {
	PaymentMethod   enums.PaymentMethod
	PaymentRef      *string
	ShippingName    string
	ShippingAddress string
}

func (in PlaceOrderInput) validate() error {
	if !in.PaymentMethod.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if strings.TrimSpace(in.ShippingName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping name is required")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if in.PaymentRef != nil && strings.TrimSpace(*in.PaymentRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference must not be blank")
	}
	return nil
}

// MarkPaidResult reports whether the confirmation changed anything; replays
// return the order unchanged with Applied false.
type MarkPaidResult struct {
	Order   *models.Order
	Applied bool
}

type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, requester pricing.RequesterContext, input PlaceOrderInput) (*models.Order, error)
	MarkPaid(ctx context.Context, paymentRef string) (*MarkPaidResult, error)
	Get(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error)
}

type service struct {
	orderRepo   *Repository
	cartRepo    *cart.Repository
	catalogRepo *catalog.Repository
	pricingRepo *pricing.Repository
	txRunner    boundedTxRunner
	events      outboxEmitter
	stats       cacheInvalidator
	guard       replayGuard
	cfg         config.CheckoutConfig
	logg        *logger.Logger
}

func NewService(
	orderRepo *Repository,
	cartRepo *cart.Repository,
	catalogRepo *catalog.Repository,
	pricingRepo *pricing.Repository,
	txRunner boundedTxRunner,
	events outboxEmitter,
	stats cacheInvalidator,
	guard replayGuard,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil || cartRepo == nil || catalogRepo == nil || pricingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: repositories are required")
	}
	if txRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: transaction runner is required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: outbox emitter is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: logger is required")
	}
	return &service{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		pricingRepo: pricingRepo,
		txRunner:    txRunner,
		events:      events,
		stats:       stats,
		guard:       guard,
		cfg:         cfg,
		logg:        logg,
	}, nil
}

// PlaceOrder converts the user's cart into an order in a single bounded
// transaction: every line's stock is checked and decremented under row locks,
// unit prices are resolved server-side and snapshotted, the order is created
// in its payment-path initial status, and the cart is cleared. Any failure
// rolls the whole thing back.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, requester pricing.RequesterContext, input PlaceOrderInput) (*models.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	// A client retry with the same payment reference returns the order the
	// first attempt created.
	if input.PaymentRef != nil {
		existing, err := s.orderRepo.FindByPaymentRef(ctx, *input.PaymentRef)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment reference")
		}
		if existing != nil {
			return existing, nil
		}
	}

	var placed *models.Order
	err := s.txRunner.WithBoundedTx(ctx, s.cfg.LockWaitBudget, s.cfg.TxBudget, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		resolver, err := pricing.NewResolver(catalogRepo, s.pricingRepo.WithTx(tx))
		if err != nil {
			return err
		}

		userCart, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			return err
		}
		if userCart == nil || len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		// Lock product rows in a stable order so two checkouts sharing
		// products cannot deadlock.
		items := append([]models.CartItem(nil), userCart.Items...)
		sort.Slice(items, func(i, j int) bool {
			return items[i].ProductID.String() < items[j].ProductID.String()
		})

		order := &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			DistributorID:   requester.EffectiveDistributorID(),
			Status:          input.PaymentMethod.InitialOrderStatus(),
			PaymentRef:      input.PaymentRef,
			ShippingName:    strings.TrimSpace(input.ShippingName),
			ShippingAddress: strings.TrimSpace(input.ShippingAddress),
			TotalPrice:      decimal.Zero,
		}

		for _, item := range items {
			product, err := catalogRepo.FindByIDForUpdate(ctx, item.ProductID)
			if err != nil {
				// A carted product can be deleted before checkout runs.
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation,
						"cart references a product that is no longer available").
						WithDetails(map[string]any{"productId": item.ProductID.String()})
				}
				return err
			}
			if product.Stock < item.Quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for %s", product.Name)).
					WithDetails(map[string]any{
						"productId": product.ID.String(),
						"product":   product.Name,
						"requested": item.Quantity,
						"available": product.Stock,
					})
			}
			if err := catalogRepo.DecrementStock(ctx, product.ID, item.Quantity); err != nil {
				return err
			}

			quote, err := resolver.Resolve(ctx, product.ID, requester, item.Quantity)
			if err != nil {
				return err
			}
			lineTotal := quote.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			order.TotalPrice = order.TotalPrice.Add(lineTotal)
			order.Items = append(order.Items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				Price:     quote.UnitPrice,
				BasePrice: quote.BasePrice,
			})
		}

		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		if err := cartRepo.ClearItems(ctx, userCart.ID); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: outbox.OrderPlacedEvent{
				OrderID:    order.ID,
				UserID:     userID,
				TotalPrice: order.TotalPrice,
				ItemCount:  len(order.Items),
			},
			Version: 1,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return err
		}

		placed = order
		return nil
	})
	if err != nil {
		// A concurrent placement with the same reference won the race; hand
		// back its order.
		if input.PaymentRef != nil && db.IsUniqueViolation(err, "") {
			existing, lookupErr := s.orderRepo.FindByPaymentRef(ctx, *input.PaymentRef)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": placed.ID.String(),
		"user_id":  userID.String(),
		"total":    placed.TotalPrice.String(),
		"status":   placed.Status,
	}), "order placed")
	return placed, nil
}

// MarkPaid applies a payment-success confirmation exactly once per payment
// reference. Replays return the already-paid order without touching it.
func (s *service) MarkPaid(ctx context.Context, paymentRef string) (*MarkPaidResult, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	// Fast path: the redis guard absorbs tight replay bursts before they
	// reach the database. It only short-circuits once the order is actually
	// paid; a marker left by a failed attempt must not swallow the retry
	// that could still apply the confirmation.
	guardKey := ""
	guardSet := false
	if s.guard != nil {
		guardKey = s.guard.IdempotencyKey("payment", paymentRef)
		first, err := s.guard.SetNX(ctx, guardKey, "1", webhookReplayTTL)
		switch {
		case err != nil:
			s.logg.Warn(ctx, "payment replay guard unavailable, falling through to database check")
		case first:
			guardSet = true
		default:
			order, err := s.orderRepo.FindByPaymentRef(ctx, paymentRef)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for replayed confirmation")
			}
			if order != nil && order.Status == enums.OrderStatusPaid {
				return &MarkPaidResult{Order: order, Applied: false}, nil
			}
		}
	}

	var result *MarkPaidResult
	err := s.txRunner.WithBoundedTx(ctx, s.cfg.LockWaitBudget, s.cfg.TxBudget, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		order, err := orderRepo.FindByPaymentRefForUpdate(ctx, paymentRef)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment reference")
		}
		if order.Status == enums.OrderStatusPaid {
			result = &MarkPaidResult{Order: order, Applied: false}
			return nil
		}
		if !order.Status.CanTransition(enums.OrderStatusPaid) {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order in status %s cannot be marked paid", order.Status))
		}

		if err := orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid); err != nil {
			return err
		}
		order.Status = enums.OrderStatusPaid

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          outbox.OrderPaidEvent{OrderID: order.ID, UserID: order.UserID, PaymentRef: paymentRef},
			Version:       1,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return err
		}

		result = &MarkPaidResult{Order: order, Applied: true}
		return nil
	})
	if err != nil {
		// Release the marker so the provider's retry is not mistaken for a
		// replay of a confirmation that never landed.
		if guardSet {
			if delErr := s.guard.Del(ctx, guardKey); delErr != nil {
				s.logg.Warn(ctx, "failed to release payment replay guard")
			}
		}
		return nil, err
	}

	if result.Applied {
		if s.stats != nil {
			s.stats.Invalidate(ctx)
		}
		s.logg.Info(s.logg.WithField(ctx, "order_id", result.Order.ID.String()), "order marked paid")
	}
	return result, nil
}

// Get loads an order, enforcing ownership unless the caller is an admin.
func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !isAdmin && order.UserID != userID {
		// Hide the order's existence from other users.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error) {
	result, err := s.orderRepo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return result, nil
}
