package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// AnalysisStatus is one row of the status surface.
type AnalysisStatus struct {
	Type      analysis.Type   `json:"type"`
	Status    analysis.Status `json:"status"`
	Error     *string         `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StatusReport is the run progress projection for a product.
type StatusReport struct {
	IsProcessing       bool             `json:"isProcessing"`
	CompletedTypes     []analysis.Type  `json:"completedTypes"`
	FailedTypes        []analysis.Type  `json:"failedTypes"`
	TotalExpectedTypes int              `json:"totalExpectedTypes"`
	Analyses           []AnalysisStatus `json:"analyses"`
}

// Status reports run progress for a product. TotalExpectedTypes excludes the
// competitor-dependent analyses when the product has no competitors, so a
// client can render completion as completed/total without special cases.
func (o *Orchestrator) Status(ctx context.Context, tenantID, productID uuid.UUID) (*StatusReport, error) {
	product, err := o.repos.Products.GetByID(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}

	competitors, err := o.repos.Competitors.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}

	expected := 0
	for _, t := range analysis.Catalog {
		if t.RequiresCompetitors() && len(competitors) == 0 {
			continue
		}
		expected++
	}

	rows, err := o.repos.Analyses.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	report := &StatusReport{
		IsProcessing:       o.guard.held(productID) || product.IsProcessing,
		CompletedTypes:     []analysis.Type{},
		FailedTypes:        []analysis.Type{},
		TotalExpectedTypes: expected,
		Analyses:           make([]AnalysisStatus, 0, len(rows)),
	}
	for _, row := range rows {
		report.Analyses = append(report.Analyses, AnalysisStatus{
			Type:      row.Type,
			Status:    row.Status,
			Error:     row.Error,
			UpdatedAt: row.UpdatedAt,
		})
		switch row.Status {
		case analysis.StatusCompleted:
			report.CompletedTypes = append(report.CompletedTypes, row.Type)
		case analysis.StatusFailed:
			report.FailedTypes = append(report.FailedTypes, row.Type)
		}
	}
	return report, nil
}
