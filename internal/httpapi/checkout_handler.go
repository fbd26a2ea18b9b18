package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	SimulatePaymentFailure bool `json:"simulate_payment_failure"`
}

type checkoutResponse struct {
	Order          *domain.Order      `json:"order"`
	PaymentSession *paymentSessionDTO `json:"payment_session,omitempty"`
}

type paymentSessionDTO struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty body means a plain checkout.
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.checkout.Checkout(r.Context(), callerFrom(r.Context()), service.CheckoutRequest{
		SimulatePaymentFailure: req.SimulatePaymentFailure,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := checkoutResponse{Order: result.Order}
	if result.PaymentSession != nil {
		resp.PaymentSession = &paymentSessionDTO{
			SessionID:   result.PaymentSession.SessionID,
			CheckoutURL: result.PaymentSession.CheckoutURL,
		}
	}

	status := http.StatusCreated
	if result.Order.Status == domain.OrderStatusPaymentFailed {
		status = http.StatusPaymentRequired
	}
	respondData(w, status, resp)
}
