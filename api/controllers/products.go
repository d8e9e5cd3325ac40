package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmoralesdev/tradecart-backend/api/middleware"
	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/api/validators"
	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/metrics"
	"github.com/rmoralesdev/tradecart-backend/pkg/pagination"
)

type priceQuoter interface {
	Resolve(ctx context.Context, productID uuid.UUID, requester pricing.RequesterContext, quantity int) (*pricing.Quote, error)
}

// ListProducts returns the active catalog priced for the requester.
func ListProducts(svc catalog.Service, resolver priceQuoter, commerce *metrics.CommerceMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}
		filters := catalog.ListFilters{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		}

		result, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requester := middleware.RequesterFromContext(r.Context())
		items := make([]productResponse, 0, len(result.Products))
		for i := range result.Products {
			product := &result.Products[i]
			quote, err := resolver.Resolve(r.Context(), product.ID, requester, 1)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			commerce.IncPriceResolution(string(quote.Source))
			items = append(items, newProductResponse(product, quote))
		}

		responses.WriteSuccess(w, listResponse[productResponse]{
			Items:      items,
			NextCursor: result.NextCursor,
		})
	}
}

// GetProduct returns one product priced for the requester. An optional qty
// query parameter resolves volume tiers for that quantity.
func GetProduct(svc catalog.Service, resolver priceQuoter, commerce *metrics.CommerceMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		quantity, err := validators.ParseQueryInt(r, "qty", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requester := middleware.RequesterFromContext(r.Context())
		quote, err := resolver.Resolve(r.Context(), productID, requester, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		commerce.IncPriceResolution(string(quote.Source))

		responses.WriteSuccess(w, newProductResponse(product, quote))
	}
}
