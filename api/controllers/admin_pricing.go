package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/api/validators"
	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
)

type defaultDiscountRequest struct {
	Percent *decimal.Decimal `json:"percent"`
}

// SetDefaultDiscount sets or clears the distributor-wide fallback discount.
func SetDefaultDiscount(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}

		var payload defaultDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetDefaultDiscount(r.Context(), distributorID, payload.Percent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDistributorResponse(updated))
	}
}

type categoryDiscountRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

// UpsertCategoryDiscount creates or replaces the per-category percentage for
// one distributor. Repeating the call for the same pair updates in place.
func UpsertCategoryDiscount(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}

		var payload categoryDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saved, err := svc.UpsertCategoryDiscount(r.Context(), distributorID, chi.URLParam(r, "category"), payload.Percent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categoryDiscountResponse{
			Category:        saved.Category,
			DiscountPercent: saved.DiscountPercent,
		})
	}
}

func DeleteCategoryDiscount(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		if err := svc.DeleteCategoryDiscount(r.Context(), distributorID, chi.URLParam(r, "category")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

func ListCategoryDiscounts(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.ListCategoryDiscounts(r.Context(), distributorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]categoryDiscountResponse, 0, len(rows))
		for _, row := range rows {
			items = append(items, categoryDiscountResponse{
				Category:        row.Category,
				DiscountPercent: row.DiscountPercent,
			})
		}
		responses.WriteSuccess(w, listResponse[categoryDiscountResponse]{Items: items})
	}
}

type productPriceRequest struct {
	CustomPrice decimal.Decimal    `json:"custom_price"`
	Tiers       []productPriceTier `json:"tiers,omitempty" validate:"dive"`
}

type productPriceTier struct {
	MinQty int             `json:"min_qty" validate:"required,min=1"`
	MaxQty *int            `json:"max_qty,omitempty"`
	Price  decimal.Decimal `json:"price"`
}

// PutProductPrice replaces the product-level override (custom price plus the
// full tier schedule) for one distributor.
func PutProductPrice(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload productPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricing.ProductPriceInput{CustomPrice: payload.CustomPrice}
		for _, tier := range payload.Tiers {
			input.Tiers = append(input.Tiers, pricing.TierInput{
				MinQty: tier.MinQty,
				MaxQty: tier.MaxQty,
				Price:  tier.Price,
			})
		}

		saved, err := svc.PutProductPrice(r.Context(), distributorID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tiers := make([]tierResponse, 0, len(saved.Tiers))
		for _, tier := range saved.Tiers {
			tiers = append(tiers, tierResponse{MinQty: tier.MinQty, MaxQty: tier.MaxQty, Price: tier.Price})
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id":   saved.ProductID,
			"custom_price": saved.CustomPrice,
			"tiers":        tiers,
		})
	}
}

func DeleteProductPrice(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		if err := svc.DeleteProductPrice(r.Context(), distributorID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
