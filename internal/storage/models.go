// Package storage provides database models and repositories for the insight engine.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// Product is a product or brand under analysis, owned by one tenant.
// IsProcessing is a read-only status projection of a running pipeline; run
// exclusion is enforced by the orchestrator's run guard, not this flag.
type Product struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	Version      string // active ingestion version in the vector index, optional
	IsProcessing bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Competitor is a named competitor attached to a product. Competitor reviews
// live in the product's vector namespace, tagged with the competitor id.
type Competitor struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Analysis is one persisted analysis outcome, unique per (product, type).
// Retries overwrite the same row; no history is kept.
type Analysis struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Type      analysis.Type
	Status    analysis.Status
	Data      json.RawMessage
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
