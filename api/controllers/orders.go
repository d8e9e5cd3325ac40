package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmoralesdev/tradecart-backend/api/middleware"
	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/api/validators"
	"github.com/rmoralesdev/tradecart-backend/internal/orders"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/metrics"
	"github.com/rmoralesdev/tradecart-backend/pkg/pagination"
)

type placeOrderRequest struct {
	PaymentMethod   string  `json:"payment_method" validate:"required"`
	PaymentRef      *string `json:"payment_ref,omitempty"`
	ShippingName    string  `json:"shipping_name" validate:"required"`
	ShippingAddress string  `json:"shipping_address" validate:"required"`
}

// PlaceOrder converts the requester's cart into an order atomically. Prices
// are resolved server-side inside the transaction; nothing the client sends
// can influence them.
func PlaceOrder(svc orders.Service, commerce *metrics.CommerceMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r, logg)
		if !ok {
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceOrderInput{
			PaymentMethod:   enums.PaymentMethod(strings.TrimSpace(payload.PaymentMethod)),
			PaymentRef:      payload.PaymentRef,
			ShippingName:    payload.ShippingName,
			ShippingAddress: payload.ShippingAddress,
		}

		started := time.Now()
		order, err := svc.PlaceOrder(r.Context(), userID, middleware.RequesterFromContext(r.Context()), input)
		commerce.ObserveCheckoutDuration(time.Since(started))
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				commerce.IncCheckoutFailure(string(typed.Code()))
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		commerce.IncOrderPlaced(string(input.PaymentMethod))

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// ListOrders returns the requester's own orders, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := orders.ListFilters{UserID: &userID}
		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			filters.Status = enums.OrderStatus(status)
		}

		result, err := svc.List(r.Context(), pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(result.Orders))
		for i := range result.Orders {
			items = append(items, newOrderResponse(&result.Orders[i]))
		}
		responses.WriteSuccess(w, listResponse[orderResponse]{Items: items, NextCursor: result.NextCursor})
	}
}

// GetOrder returns one order. Non-admins only see their own.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r, logg)
		if !ok {
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		isAdmin := middleware.RoleFromContext(r.Context()) == string(enums.RoleAdmin)
		order, err := svc.Get(r.Context(), orderID, userID, isAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
