package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/api/validators"
	"github.com/rmoralesdev/tradecart-backend/internal/distributors"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/pagination"
)

type createDistributorRequest struct {
	Name                   string           `json:"name" validate:"required"`
	EmailDomain            string           `json:"email_domain" validate:"required"`
	DefaultDiscountPercent *decimal.Decimal `json:"default_discount_percent,omitempty"`
}

func CreateDistributor(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createDistributorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), distributors.CreateInput{
			Name:                   payload.Name,
			EmailDomain:            payload.EmailDomain,
			DefaultDiscountPercent: payload.DefaultDiscountPercent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDistributorResponse(created))
	}
}

func GetDistributor(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		distributor, err := svc.Get(r.Context(), distributorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDistributorResponse(distributor))
	}
}

func ListDistributors(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]distributorResponse, 0, len(result.Distributors))
		for i := range result.Distributors {
			items = append(items, newDistributorResponse(&result.Distributors[i]))
		}
		responses.WriteSuccess(w, listResponse[distributorResponse]{Items: items, NextCursor: result.NextCursor})
	}
}

type updateDistributorRequest struct {
	Name        *string `json:"name,omitempty"`
	EmailDomain *string `json:"email_domain,omitempty"`
}

func UpdateDistributor(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}

		var payload updateDistributorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), distributorID, distributors.UpdateInput{
			Name:        payload.Name,
			EmailDomain: payload.EmailDomain,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDistributorResponse(updated))
	}
}

// DeleteDistributor removes a tenant. Deletion is refused while member
// accounts still reference it.
func DeleteDistributor(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), distributorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

type addDomainRequest struct {
	Host string `json:"host" validate:"required"`
}

func AddDistributorDomain(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}

		var payload addDomainRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		domain, err := svc.AddDomain(r.Context(), distributorID, payload.Host)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, domainResponse{Host: domain.Host, Verified: domain.Verified})
	}
}

func VerifyDistributorDomain(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		host := chi.URLParam(r, "host")
		if err := svc.VerifyDomain(r.Context(), distributorID, host); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, domainResponse{Host: host, Verified: true})
	}
}

func RemoveDistributorDomain(svc distributors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		distributorID, ok := requireDistributorParam(w, r, logg)
		if !ok {
			return
		}
		if err := svc.RemoveDomain(r.Context(), distributorID, chi.URLParam(r, "host")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

func requireDistributorParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	distributorID, err := uuid.Parse(chi.URLParam(r, "distributorID"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid distributor id"))
		return uuid.Nil, false
	}
	return distributorID, true
}
