package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/sillage/internal/cart"
	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/storefront"
)

const maxRequestBody = 1 << 20

// Sessions resolves the storefront of a browsing session.
type Sessions interface {
	Get(ctx context.Context, sessionID string) *storefront.Storefront
}

func currentStorefront(sessions Sessions, r *http.Request) *storefront.Storefront {
	return sessions.Get(r.Context(), sessionFromContext(r.Context()))
}

type CartHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewCartHandler(sessions Sessions, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	SizeID    string `json:"sizeId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartResponse struct {
	Items  []domain.LineItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
	Result *cart.Result      `json:"result,omitempty"`
}

func cartResponse(c *cart.Store, res *cart.Result) CartResponse {
	items, totals := c.Snapshot()
	return CartResponse{
		Items:  items,
		Totals: totals,
		Result: res,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sf := currentStorefront(h.sessions, r)
	respondJSON(w, http.StatusOK, cartResponse(sf.Cart, nil))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req, maxRequestBody) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sf := currentStorefront(h.sessions, r)
	res, err := sf.AddToCart(ctx, req.ProductID, req.SizeID, qty)
	if err != nil {
		handleError(w, err)
		return
	}
	if !res.Success() {
		respondRejected(w, res)
		return
	}

	status := http.StatusOK
	if res.Outcome == cart.OutcomeAdded {
		status = http.StatusCreated
	}
	respondJSON(w, status, cartResponse(sf.Cart, &res))
}

// PATCH /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req, maxRequestBody) {
		return
	}

	sf := currentStorefront(h.sessions, r)
	res := sf.UpdateQuantity(ctx, id, req.Delta)
	if !res.Success() && res.Outcome != cart.OutcomeUnchanged {
		respondRejected(w, res)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sf.Cart, &res))
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sf := currentStorefront(h.sessions, r)
	res := sf.RemoveFromCart(ctx, chi.URLParam(r, "id"))
	respondJSON(w, http.StatusOK, cartResponse(sf.Cart, &res))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sf := currentStorefront(h.sessions, r)
	res := sf.ClearCart(ctx)
	respondJSON(w, http.StatusOK, cartResponse(sf.Cart, &res))
}
