package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/api/validators"
	"github.com/rmoralesdev/tradecart-backend/internal/catalog"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
)

type upsertProductRequest struct {
	Name      string          `json:"name" validate:"required"`
	SKU       string          `json:"sku" validate:"required"`
	Category  string          `json:"category" validate:"required"`
	BasePrice decimal.Decimal `json:"base_price"`
	Stock     int             `json:"stock" validate:"min=0"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

func (r upsertProductRequest) toInput() catalog.UpsertProductInput {
	return catalog.UpsertProductInput{
		Name:      r.Name,
		SKU:       r.SKU,
		Category:  r.Category,
		BasePrice: r.BasePrice,
		Stock:     r.Stock,
		IsActive:  r.IsActive,
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload upsertProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(created, nil))
	}
}

func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload upsertProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(updated, nil))
	}
}

func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
