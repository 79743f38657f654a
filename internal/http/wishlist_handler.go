package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/wishlist"
)

type WishlistHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewWishlistHandler(sessions Sessions, timeout time.Duration) *WishlistHandler {
	return &WishlistHandler{sessions: sessions, timeout: timeout}
}

type ToggleWishlistRequestDTO struct {
	ProductID string `json:"productId"`
}

type WishlistResponse struct {
	Items  []domain.WishlistEntry `json:"items"`
	Count  int                    `json:"count"`
	Result *wishlist.Result       `json:"result,omitempty"`
}

func wishlistResponse(w *wishlist.Store, res *wishlist.Result) WishlistResponse {
	return WishlistResponse{Items: w.Items(), Count: w.Count(), Result: res}
}

func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	sf := currentStorefront(h.sessions, r)
	respondJSON(w, http.StatusOK, wishlistResponse(sf.Wishlist, nil))
}

func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ToggleWishlistRequestDTO
	if !decodeJSON(w, r, &req, maxRequestBody) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}

	sf := currentStorefront(h.sessions, r)
	res, err := sf.ToggleWishlist(ctx, req.ProductID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlistResponse(sf.Wishlist, &res))
}

func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sf := currentStorefront(h.sessions, r)
	res := sf.RemoveFromWishlist(ctx, chi.URLParam(r, "productId"))
	respondJSON(w, http.StatusOK, wishlistResponse(sf.Wishlist, &res))
}

func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sf := currentStorefront(h.sessions, r)
	res := sf.ClearWishlist(ctx)
	respondJSON(w, http.StatusOK, wishlistResponse(sf.Wishlist, &res))
}
