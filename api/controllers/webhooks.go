package controllers

import (
	"net/http"

	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/api/validators"
	"github.com/rmoralesdev/tradecart-backend/internal/orders"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/metrics"
)

type paymentSuccessRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

type paymentSuccessResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

// PaymentSuccessWebhook marks the referenced order paid. Provider retries are
// absorbed: a replay returns the order unchanged with applied false.
func PaymentSuccessWebhook(svc orders.Service, commerce *metrics.CommerceMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentSuccessRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkPaid(r.Context(), payload.PaymentRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !result.Applied {
			commerce.IncWebhookReplay()
		}

		responses.WriteSuccess(w, paymentSuccessResponse{
			OrderID: result.Order.ID.String(),
			Status:  string(result.Order.Status),
			Applied: result.Applied,
		})
	}
}
