package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/sheets-ledger/internal/api/middleware"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
