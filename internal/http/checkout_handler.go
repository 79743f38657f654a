package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/sillage/internal/checkout"
	"github.com/fjod/sillage/internal/orders"
)

type CheckoutHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewCheckoutHandler(sessions Sessions, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, timeout: timeout}
}

type SubmitResponseDTO struct {
	TrackingCode string        `json:"trackingCode"`
	Checkout     checkout.View `json:"checkout"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	sf := currentStorefront(h.sessions, r)
	respondJSON(w, http.StatusOK, sf.Checkout.View())
}

// PATCH /api/v1/checkout/fields
func (h *CheckoutHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decodeJSON(w, r, &fields, maxRequestBody) {
		return
	}

	sf := currentStorefront(h.sessions, r)
	if err := sf.Checkout.SetFields(fields); err != nil {
		switch {
		case errors.Is(err, checkout.ErrUnknownField):
			respondError(w, http.StatusBadRequest, "unknown_field", err.Error())
		case errors.Is(err, checkout.ErrNotEditable):
			respondError(w, http.StatusConflict, "not_editable", err.Error())
		default:
			handleError(w, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, sf.Checkout.View())
}

// POST /api/v1/checkout/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sf := currentStorefront(h.sessions, r)
	code, err := sf.Checkout.Submit(ctx)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, SubmitResponseDTO{TrackingCode: code, Checkout: sf.Checkout.View()})
	case errors.Is(err, checkout.ErrValidation):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Please fill in all required fields correctly",
			Code:   "validation_failed",
			Fields: sf.Checkout.View().Errors,
		})
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", "an order submission is already in progress")
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", "Your cart is empty")
	case errors.Is(err, checkout.ErrNotEditable):
		respondError(w, http.StatusConflict, "already_submitted", "order already placed")
	default:
		var apiErr *orders.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			respondError(w, http.StatusBadRequest, "order_rejected", orders.Message(err, "Failed to place order"))
			return
		}
		handleError(w, err)
	}
}

// POST /api/v1/checkout/continue
func (h *CheckoutHandler) ContinueShopping(w http.ResponseWriter, r *http.Request) {
	sf := currentStorefront(h.sessions, r)
	sf.Checkout.ContinueShopping()
	respondJSON(w, http.StatusOK, sf.Checkout.View())
}
