package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/cmd/insight-api/middleware"
	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/orchestrator"
	"github.com/reviewloop/insight-engine/internal/storage"
)

// AnalysisHandler handles analysis run and status requests.
type AnalysisHandler struct {
	logger *observability.Logger
	orch   *orchestrator.Orchestrator
	repos  *storage.Repositories
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(logger *observability.Logger, orch *orchestrator.Orchestrator, repos *storage.Repositories) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, orch: orch, repos: repos}
}

// RunSummaryDTO is the API shape of a full-run outcome.
type RunSummaryDTO struct {
	Success   bool            `json:"success"`
	Completed []analysis.Type `json:"completedTypes"`
	Steps     []StepDTO       `json:"steps"`
	Errors    []string        `json:"errors,omitempty"`
}

// StepDTO is the API shape of one catalog step.
type StepDTO struct {
	Type    analysis.Type        `json:"type"`
	Outcome orchestrator.Outcome `json:"outcome"`
	Error   string               `json:"error,omitempty"`
}

func stepDTO(s orchestrator.StepResult) StepDTO {
	dto := StepDTO{Type: s.Type, Outcome: s.Outcome}
	if s.Err != nil {
		dto.Error = s.Err.Error()
	}
	return dto
}

// RunAll runs the full analysis catalog for a product. The request blocks
// until the run finishes; callers wanting progress should poll the status
// endpoint from another connection.
func (h *AnalysisHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	summary, err := h.orch.RunAll(r.Context(), tenantID, productID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := RunSummaryDTO{
		Success:   summary.Success,
		Completed: summary.Completed,
		Errors:    summary.Errors,
		Steps:     make([]StepDTO, 0, len(summary.Steps)),
	}
	for _, s := range summary.Steps {
		dto.Steps = append(dto.Steps, stepDTO(s))
	}
	writeJSON(w, http.StatusOK, dto)
}

// RunOne retries a single analysis type.
func (h *AnalysisHandler) RunOne(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	analysisType := analysis.Type(chi.URLParam(r, "analysisType"))
	if !analysisType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown analysis type")
		return
	}

	step, err := h.orch.RunOne(r.Context(), tenantID, productID, analysisType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepDTO(step))
}

// Status reports run progress for a product.
func (h *AnalysisHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	report, err := h.orch.Status(r.Context(), tenantID, productID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AnalysisDTO is the API shape of a persisted analysis result.
type AnalysisDTO struct {
	Type   analysis.Type   `json:"type"`
	Status analysis.Status `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *string         `json:"error,omitempty"`
}

// Get returns one persisted analysis result including its payload.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	analysisType := analysis.Type(chi.URLParam(r, "analysisType"))
	if !analysisType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown analysis type")
		return
	}

	// Ownership check before touching the analyses table.
	if _, err := h.repos.Products.GetByID(r.Context(), tenantID, productID); err != nil {
		writeDomainError(w, err)
		return
	}

	row, err := h.repos.Analyses.GetByProductAndType(r.Context(), productID, analysisType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisDTO{
		Type:   row.Type,
		Status: row.Status,
		Data:   row.Data,
		Error:  row.Error,
	})
}
