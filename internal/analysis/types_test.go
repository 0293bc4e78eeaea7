package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CoversEveryConfiguredType(t *testing.T) {
	seen := make(map[Type]bool, len(Catalog))
	for _, typ := range Catalog {
		assert.False(t, seen[typ], "catalog type %s listed twice", typ)
		seen[typ] = true
	}
	for typ := range reviewCounts {
		assert.True(t, seen[typ], "review count configured for %s, which is not in the catalog", typ)
	}
}

func TestTypeValid_KeyedOffCatalog(t *testing.T) {
	for _, typ := range Catalog {
		assert.True(t, typ.Valid(), "catalog type %s must be valid", typ)
	}
	assert.False(t, Type("astrology").Valid())
	assert.False(t, Type("").Valid())
}

func TestCatalog_PrerequisitesPrecedeSmartCompetition(t *testing.T) {
	pos := make(map[Type]int, len(Catalog))
	for i, typ := range Catalog {
		pos[typ] = i
	}
	for _, prereq := range SmartCompetitionPrerequisites {
		assert.Less(t, pos[prereq], pos[TypeSmartCompetition],
			"%s must come before smart_competition", prereq)
	}
}

func TestReviewCount(t *testing.T) {
	assert.Equal(t, 50, ReviewCount(TypeProductDescription))
	assert.Equal(t, 200, ReviewCount(TypeVoiceOfCustomer))
	assert.Equal(t, 200, ReviewCount(TypeSmartCompetition))
	assert.Equal(t, DefaultReviewCount, ReviewCount(Type("made_up")))
}

func TestReview_RatingBucket(t *testing.T) {
	tests := []struct {
		rating float64
		want   int
	}{
		{1.0, 1},
		{1.4, 1},
		{1.5, 2},
		{2.9, 3},
		{4.5, 5},
		{5.0, 5},
		{0.2, 1}, // clamped low
		{5.8, 5}, // clamped high
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Review{Rating: tt.rating}.RatingBucket(), "rating %v", tt.rating)
	}
}

func TestDecodePayload_RoundTripsEveryCatalogType(t *testing.T) {
	samples := map[Type]Payload{
		TypeProductDescription:       ProductDescriptionResult{Summary: "a blender"},
		TypeSentiment:                SentimentResult{Overall: "positive", Score: 0.6},
		TypeVoiceOfCustomer:          VoiceOfCustomerResult{Vocabulary: []string{"smoothie"}},
		TypeFourWMatrix:              FourWMatrixResult{Who: []string{"parents"}},
		TypeJTBD:                     JTBDResult{Jobs: []JobToBeDone{{Job: "make breakfast fast"}}},
		TypeSTP:                      STPResult{Positioning: "premium"},
		TypeSWOT:                     SWOTResult{Strengths: []string{"motor"}},
		TypeCustomerJourney:          CustomerJourneyResult{Stages: []JourneyStage{{Stage: "unboxing"}}},
		TypePersonas:                 PersonasResult{Personas: []Persona{{Name: "Busy Beth", Description: "meal prepper"}}},
		TypeCompetition:              CompetitionResult{MarketPosition: "challenger"},
		TypeSmartCompetition:         SmartCompetitionResult{Summary: "ahead on durability"},
		TypeStrategicRecommendations: StrategicRecommendationsResult{Recommendations: []Recommendation{{Title: "fix lid seal"}}},
		TypeRatingAnalysis:           RatingAnalysisResult{Average: 4.2},
	}

	require.Len(t, samples, len(Catalog), "every catalog type needs a sample payload")

	for typ, payload := range samples {
		raw, err := EncodePayload(typ, payload)
		require.NoError(t, err, typ)

		decoded, err := DecodePayload(typ, raw)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, decoded.AnalysisType())
	}
}

func TestDecodePayload_UnknownType(t *testing.T) {
	_, err := DecodePayload(Type("astrology"), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(TypeSWOT, SentimentResult{})
	assert.Error(t, err)
}
