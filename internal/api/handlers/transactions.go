// Package handlers implements the HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/api/middleware"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
	"github.com/dvloznov/sheets-ledger/internal/sheets"
)

// TransactionStore is the record store behind the transaction endpoints.
type TransactionStore interface {
	List(ctx context.Context) ([]ledger.Record, error)
	Create(ctx context.Context, payload map[string]any) (int, error)
	Delete(ctx context.Context, id int) error
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store TransactionStore
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: store,
		log:   log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, records)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Anything but a non-empty JSON object carries no data.
	var payload map[string]any
	if len(body) > 0 {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		payload, _ = decoded.(map[string]any)
	}

	id, err := h.store.Create(r.Context(), payload)
	if err != nil {
		h.writeStoreError(w, r, err, "Failed to add transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Transaction added",
		"id":      id,
	})
}

// DeleteTransaction handles DELETE /api/transactions/{row_id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "row_id"))
	if err != nil {
		// Digits only by route; anything that overflows cannot be a row.
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, r, err, "Failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

// writeStoreError maps ledger and sheet errors onto HTTP responses.
func (h *TransactionsHandler) writeStoreError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := h.requestLog(r)

	switch {
	case errors.Is(err, ledger.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, "No data")
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, sheets.ErrConfiguration):
		log.Error().Err(err).Msg("Sheet backend is not configured")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	default:
		var remote *sheets.RemoteError
		if errors.As(err, &remote) {
			log.Error().Err(err).Str("op", remote.Op).Msg(msg)
		} else {
			log.Error().Err(err).Msg(msg)
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// requestLog prefers the request-scoped logger set by the middleware chain.
func (h *TransactionsHandler) requestLog(r *http.Request) zerolog.Logger {
	if l, ok := r.Context().Value(logger.LoggerKey).(zerolog.Logger); ok {
		return l
	}
	return h.log
}
