package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
)

// Line is one cart row with its freshly resolved price. Prices are never
// stored on the cart; they are computed at read time so pricing rule changes
// take effect immediately.
type Line struct {
	Product   *models.Product
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	Source    pricing.QuoteSource
}

// View is the priced projection of a cart returned to callers.
type View struct {
	CartID   uuid.UUID
	Lines    []Line
	Subtotal decimal.Decimal
}

type quoter interface {
	Resolve(ctx context.Context, productID uuid.UUID, requester pricing.RequesterContext, quantity int) (*pricing.Quote, error)
}

type Service interface {
	Get(ctx context.Context, userID uuid.UUID, requester pricing.RequesterContext) (*View, error)
	SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	repo     *Repository
	resolver quoter
	logg     *logger.Logger
}

func NewService(repo *Repository, resolver quoter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart: repository is required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart: price resolver is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart: logger is required")
	}
	return &service{repo: repo, resolver: resolver, logg: logg}, nil
}

// Get returns the cart with every line re-priced for the requester. A user
// with no cart yet gets an empty view rather than an error.
func (s *service) Get(ctx context.Context, userID uuid.UUID, requester pricing.RequesterContext) (*View, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart == nil {
		return &View{Subtotal: decimal.Zero}, nil
	}

	view := &View{CartID: cart.ID, Subtotal: decimal.Zero}
	for _, item := range cart.Items {
		quote, err := s.resolver.Resolve(ctx, item.ProductID, requester, item.Quantity)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				// Product removed from the catalog after it was added;
				// skip the stale line instead of failing the whole read.
				s.logg.Warn(s.logg.WithField(ctx, "product_id", item.ProductID.String()),
					"dropping cart line for missing product")
				continue
			}
			return nil, err
		}
		lineTotal := quote.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Lines = append(view.Lines, Line{
			Product:   quote.Product,
			Quantity:  item.Quantity,
			UnitPrice: quote.UnitPrice,
			LineTotal: lineTotal,
			Source:    quote.Source,
		})
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	return view, nil
}

// SetItem sets the quantity for a product line. Quantity zero removes the
// line; negative quantities are rejected.
func (s *service) SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	// Resolving validates the product exists and is priceable before the
	// line is written.
	if _, err := s.resolver.Resolve(ctx, productID, pricing.Guest(), quantity); err != nil {
		return err
	}

	cart, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.UpsertItem(ctx, cart.ID, productID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart == nil {
		return nil
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return nil
}
