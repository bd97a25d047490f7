package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/api/middleware"
	"github.com/dvloznov/sheets-ledger/internal/jobs"
)

// ExportTargets reports which export targets are configured.
type ExportTargets interface {
	Has(target string) bool
	Targets() []string
}

// ExportsHandler enqueues snapshot export jobs.
type ExportsHandler struct {
	targets   ExportTargets
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(targets ExportTargets, publisher jobs.Publisher, log zerolog.Logger) *ExportsHandler {
	return &ExportsHandler{
		targets:   targets,
		publisher: publisher,
		log:       log,
	}
}

// ListTargets handles GET /api/exports
func (h *ExportsHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets := h.targets.Targets()
	if targets == nil {
		targets = []string{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"targets": targets,
	})
}

// EnqueueExport handles POST /api/exports
func (h *ExportsHandler) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Target == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Target is required")
		return
	}

	if !h.targets.Has(req.Target) {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown or unconfigured export target")
		return
	}

	// The worker owns the job once it is published, so respond from these values.
	jobID := uuid.NewString()
	job := &jobs.ExportJob{
		JobID:  jobID,
		Target: req.Target,
		Status: jobs.JobStatusPending,
	}
	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("target", req.Target).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().
		Str("job_id", jobID).
		Str("target", req.Target).
		Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": jobID,
		"target": req.Target,
		"status": jobs.JobStatusPending,
	})
}
