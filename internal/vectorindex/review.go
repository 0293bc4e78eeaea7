package vectorindex

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// Metadata field names for review vectors.
const (
	FieldProductID    = "product_id"
	FieldCompetitorID = "competitor_id"
	FieldText         = "text"
	FieldRating       = "rating"
	FieldDate         = "date" // unix seconds
	FieldWordCount    = "word_count"
	FieldVersion      = "version"
)

// ReviewMetadata flattens a review into index metadata.
func ReviewMetadata(r analysis.Review) map[string]any {
	md := map[string]any{
		FieldProductID: r.ProductID.String(),
		FieldText:      r.Text,
		FieldRating:    r.Rating,
		FieldWordCount: float64(r.WordCount),
	}
	if r.CompetitorID != nil {
		md[FieldCompetitorID] = r.CompetitorID.String()
	}
	if r.Date != nil {
		md[FieldDate] = float64(r.Date.Unix())
	}
	if r.Version != "" {
		md[FieldVersion] = r.Version
	}
	return md
}

// ReviewFromMatch reconstructs a review from a query match.
func ReviewFromMatch(m Match) (analysis.Review, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return analysis.Review{}, fmt.Errorf("parse review id %q: %w", m.ID, err)
	}

	productID, err := uuid.Parse(str(m.Metadata, FieldProductID))
	if err != nil {
		return analysis.Review{}, fmt.Errorf("review %s: parse product id: %w", m.ID, err)
	}

	r := analysis.Review{
		ID:        id,
		ProductID: productID,
		Text:      str(m.Metadata, FieldText),
		Version:   str(m.Metadata, FieldVersion),
	}

	if v, ok := asFloat(m.Metadata[FieldRating]); ok {
		r.Rating = v
	}
	if v, ok := asFloat(m.Metadata[FieldWordCount]); ok {
		r.WordCount = int(v)
	}
	if v, ok := asFloat(m.Metadata[FieldDate]); ok {
		t := time.Unix(int64(v), 0).UTC()
		r.Date = &t
	}
	if s := str(m.Metadata, FieldCompetitorID); s != "" {
		cid, err := uuid.Parse(s)
		if err != nil {
			return analysis.Review{}, fmt.Errorf("review %s: parse competitor id: %w", m.ID, err)
		}
		r.CompetitorID = &cid
	}

	return r, nil
}

func str(md map[string]any, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}
