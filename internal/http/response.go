package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fjod/sillage/internal/cart"
	"github.com/fjod/sillage/internal/catalog"
	"github.com/fjod/sillage/internal/orders"
	"github.com/fjod/sillage/internal/storefront"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondRejected reports a cart business rejection.
func respondRejected(w http.ResponseWriter, res cart.Result) {
	status := http.StatusConflict
	switch res.Outcome {
	case cart.OutcomeItemNotFound:
		status = http.StatusNotFound
	case cart.OutcomeInvalidQuantity, cart.OutcomeSizeRequired:
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, res.Outcome.String(), res.Message)
}

// handleError maps collaborator and lookup errors to HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	var (
		inputErr *storefront.InputError
		apiErr   *orders.APIError
	)
	switch {
	case errors.As(err, &inputErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  inputErr.Message,
			Code:   "invalid_input",
			Fields: map[string]string{inputErr.Field: inputErr.Message},
		})
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, storefront.ErrSizeNotFound):
		respondError(w, http.StatusNotFound, "size_not_found", "size not found")
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		respondError(w, http.StatusNotFound, "not_found", orders.Message(err, "not found"))
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		respondError(w, http.StatusBadRequest, "rejected", orders.Message(err, "request rejected"))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "order service unavailable")
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, "upstream_error", orders.Message(err, "order service error"))
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zap.L().Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
