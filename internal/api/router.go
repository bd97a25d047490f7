// Package api assembles the HTTP surface of the ledger service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/api/handlers"
	"github.com/dvloznov/sheets-ledger/internal/api/middleware"
)

// Deps are the handlers mounted by NewRouter.
type Deps struct {
	Transactions *handlers.TransactionsHandler
	Exports      *handlers.ExportsHandler
	Jobs         *handlers.JobsHandler
	Static       http.Handler
}

// NewRouter builds the routes behind the Recovery, Logger, RequestID and CORS
// middleware, in that order from the outside in.
func NewRouter(d Deps, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", d.Transactions.ListTransactions)
			r.Post("/", d.Transactions.CreateTransaction)
			r.Delete("/{row_id:[0-9]+}", d.Transactions.DeleteTransaction)
		})

		if d.Exports != nil {
			r.Get("/exports", d.Exports.ListTargets)
			r.Post("/exports", d.Exports.EnqueueExport)
		}

		if d.Jobs != nil {
			r.Get("/jobs", d.Jobs.ListJobs)
			r.Get("/jobs/{id}", d.Jobs.GetJob)
		}
	})

	r.Get("/health", handlers.Health)

	if d.Static != nil {
		r.Method(http.MethodGet, "/", d.Static)
	}

	return r
}
