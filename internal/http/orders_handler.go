package http

import (
	"context"
	"net/http"
	"time"
)

type OrdersHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewOrdersHandler(sessions Sessions, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{sessions: sessions, timeout: timeout}
}

// GET /api/v1/orders/track?trackingCode=&phoneLastDigits=
func (h *OrdersHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	sf := currentStorefront(h.sessions, r)
	order, err := sf.TrackOrder(ctx, q.Get("trackingCode"), q.Get("phoneLastDigits"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
