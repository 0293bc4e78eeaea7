// Package analysis defines the shared domain model for qualitative review
// analyses: the analysis type catalog, run statuses, and typed result payloads.
package analysis

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies one qualitative report the engine can produce for a product.
type Type string

const (
	TypeProductDescription       Type = "product_description"
	TypeSentiment                Type = "sentiment"
	TypeVoiceOfCustomer          Type = "voice_of_customer"
	TypeFourWMatrix              Type = "four_w_matrix"
	TypeJTBD                     Type = "jtbd"
	TypeSTP                      Type = "stp"
	TypeSWOT                     Type = "swot"
	TypeCustomerJourney          Type = "customer_journey"
	TypePersonas                 Type = "personas"
	TypeCompetition              Type = "competition"
	TypeSmartCompetition         Type = "smart_competition"
	TypeStrategicRecommendations Type = "strategic_recommendations"
	TypeRatingAnalysis           Type = "rating_analysis"
)

// Catalog is the fixed, ordered list of analysis types a full run walks.
// Order matters: smart_competition depends on results produced earlier.
var Catalog = []Type{
	TypeProductDescription,
	TypeSentiment,
	TypeVoiceOfCustomer,
	TypeFourWMatrix,
	TypeJTBD,
	TypeSTP,
	TypeSWOT,
	TypeCustomerJourney,
	TypePersonas,
	TypeCompetition,
	TypeSmartCompetition,
	TypeStrategicRecommendations,
	TypeRatingAnalysis,
}

// SmartCompetitionPrerequisites are the analysis types that must be completed
// for a product before smart_competition may run.
var SmartCompetitionPrerequisites = []Type{
	TypeProductDescription,
	TypeSWOT,
	TypeSTP,
	TypeCustomerJourney,
}

// reviewCounts holds the target review count per analysis type.
var reviewCounts = map[Type]int{
	TypeProductDescription:       50,
	TypeSentiment:                100,
	TypeVoiceOfCustomer:          200,
	TypeFourWMatrix:              80,
	TypeJTBD:                     100,
	TypeSTP:                      150,
	TypeSWOT:                     100,
	TypeCustomerJourney:          120,
	TypePersonas:                 150,
	TypeCompetition:              100,
	TypeSmartCompetition:         200,
	TypeStrategicRecommendations: 100,
	TypeRatingAnalysis:           150,
}

// DefaultReviewCount applies to types with no configured count.
const DefaultReviewCount = 100

// ReviewCount returns the target review count for the given type.
func ReviewCount(t Type) int {
	if n, ok := reviewCounts[t]; ok {
		return n
	}
	return DefaultReviewCount
}

// Valid reports whether t is a known analysis type. Membership is defined by
// the catalog; a catalog type without a configured review count is still
// valid and falls back to DefaultReviewCount.
func (t Type) Valid() bool {
	for _, known := range Catalog {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresCompetitors reports whether t can only run when the product has
// at least one competitor.
func (t Type) RequiresCompetitors() bool {
	return t == TypeCompetition || t == TypeSmartCompetition
}

// Status represents the lifecycle state of a persisted analysis.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Review is a single customer review as stored in the vector index metadata.
// Immutable once ingested; the engine only reads it.
type Review struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    uuid.UUID  `json:"productId"`
	CompetitorID *uuid.UUID `json:"competitorId,omitempty"`
	Text         string     `json:"text"`
	Rating       float64    `json:"rating"` // 1-5, fractional allowed
	Date         *time.Time `json:"date,omitempty"`
	WordCount    int        `json:"wordCount"`
	Version      string     `json:"version,omitempty"` // ingestion version tag
}

// RatingBucket rounds the review rating to its nearest integer bucket (1-5).
func (r Review) RatingBucket() int {
	bucket := int(r.Rating + 0.5)
	if bucket < 1 {
		bucket = 1
	}
	if bucket > 5 {
		bucket = 5
	}
	return bucket
}

// CompetitorSnapshot is a reduced analysis bundle computed for one competitor,
// consumed as auxiliary context by smart_competition. Never persisted.
type CompetitorSnapshot struct {
	CompetitorID    uuid.UUID                 `json:"competitorId"`
	Name            string                    `json:"name"`
	Description     *ProductDescriptionResult `json:"product_description,omitempty"`
	SWOT            *SWOTResult               `json:"swot,omitempty"`
	STP             *STPResult                `json:"stp,omitempty"`
	CustomerJourney *CustomerJourneyResult    `json:"customer_journey,omitempty"`
}

// CompetitorBundle maps competitor IDs to their reduced analysis snapshots.
type CompetitorBundle map[uuid.UUID]*CompetitorSnapshot
