package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/greenkart/order-service/internal/domain/order"
	"github.com/greenkart/order-service/internal/domain/stock"
)

// errorResponse is the uniform error body for every failure.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeDomainError maps domain errors to HTTP responses. Unrecognized errors
// become a generic retryable 500 so internals never leak to the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		oosErr        *stock.OutOfStockError
		removedErr    *stock.ProductRemovedError
		transitionErr *order.InvalidTransitionError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &oosErr):
		writeError(w, http.StatusUnprocessableEntity, oosErr.Error())
	case errors.As(err, &removedErr):
		writeError(w, http.StatusUnprocessableEntity, removedErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusUnprocessableEntity, transitionErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "temporary failure, please retry")
	}
}
