package analysis

import (
	"encoding/json"
	"fmt"
)

// Payload is the tagged union of analysis result schemas. Each analysis type
// has exactly one concrete payload struct; DecodePayload dispatches on type so
// adding a new type without a schema fails loudly.
type Payload interface {
	AnalysisType() Type
}

// ProductDescriptionResult describes what the product is and how buyers frame it.
type ProductDescriptionResult struct {
	Summary     string   `json:"summary"`
	Positioning string   `json:"positioning,omitempty"`
	KeyFeatures []string `json:"keyFeatures,omitempty"`
	UseCases    []string `json:"useCases,omitempty"`
}

func (ProductDescriptionResult) AnalysisType() Type { return TypeProductDescription }

// SentimentTheme is one recurring theme with its polarity.
type SentimentTheme struct {
	Theme    string  `json:"theme"`
	Polarity string  `json:"polarity"` // positive, negative, mixed
	Share    float64 `json:"share"`    // 0-1 fraction of reviews mentioning it
}

// SentimentResult summarizes overall review sentiment.
type SentimentResult struct {
	Overall         string           `json:"overall"` // positive, negative, mixed
	Score           float64          `json:"score"`   // -1..1
	PositiveShare   float64          `json:"positiveShare"`
	NegativeShare   float64          `json:"negativeShare"`
	NeutralShare    float64          `json:"neutralShare"`
	Themes          []SentimentTheme `json:"themes,omitempty"`
	NotableMentions []string         `json:"notableMentions,omitempty"`
}

func (SentimentResult) AnalysisType() Type { return TypeSentiment }

// CustomerQuote is a representative verbatim quote.
type CustomerQuote struct {
	Quote  string  `json:"quote"`
	Theme  string  `json:"theme,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

// VoiceOfCustomerResult collects customer language grouped by theme.
type VoiceOfCustomerResult struct {
	Themes []struct {
		Name   string          `json:"name"`
		Quotes []CustomerQuote `json:"quotes"`
	} `json:"themes"`
	Vocabulary []string `json:"vocabulary,omitempty"`
}

func (VoiceOfCustomerResult) AnalysisType() Type { return TypeVoiceOfCustomer }

// FourWMatrixResult answers who buys, what for, when, and where.
type FourWMatrixResult struct {
	Who   []string `json:"who"`
	What  []string `json:"what"`
	When  []string `json:"when"`
	Where []string `json:"where"`
}

func (FourWMatrixResult) AnalysisType() Type { return TypeFourWMatrix }

// JobToBeDone is one job customers hire the product for.
type JobToBeDone struct {
	Job              string   `json:"job"`
	Context          string   `json:"context,omitempty"`
	DesiredOutcome   string   `json:"desiredOutcome,omitempty"`
	SupportingQuotes []string `json:"supportingQuotes,omitempty"`
}

// JTBDResult is the jobs-to-be-done analysis.
type JTBDResult struct {
	Jobs []JobToBeDone `json:"jobs"`
}

func (JTBDResult) AnalysisType() Type { return TypeJTBD }

// MarketSegment is one identified customer segment.
type MarketSegment struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Characteristics []string `json:"characteristics,omitempty"`
}

// STPResult is the segmentation / targeting / positioning analysis.
type STPResult struct {
	Segments    []MarketSegment `json:"segments"`
	Targeting   string          `json:"targeting,omitempty"`
	Positioning string          `json:"positioning,omitempty"`
}

func (STPResult) AnalysisType() Type { return TypeSTP }

// SWOTResult is the strengths/weaknesses/opportunities/threats analysis.
// Competitor sub-runs fill only Strengths and Weaknesses.
type SWOTResult struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities,omitempty"`
	Threats       []string `json:"threats,omitempty"`
}

func (SWOTResult) AnalysisType() Type { return TypeSWOT }

// JourneyStage is one stage of the customer journey.
type JourneyStage struct {
	Stage      string   `json:"stage"`
	Experience string   `json:"experience,omitempty"`
	PainPoints []string `json:"painPoints,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// CustomerJourneyResult maps the end-to-end customer journey.
type CustomerJourneyResult struct {
	Stages []JourneyStage `json:"stages"`
}

func (CustomerJourneyResult) AnalysisType() Type { return TypeCustomerJourney }

// Persona is one synthesized buyer persona.
type Persona struct {
	Name         string   `json:"name"`
	Age          string   `json:"age,omitempty"`
	Occupation   string   `json:"occupation,omitempty"`
	Description  string   `json:"description"`
	Goals        []string `json:"goals,omitempty"`
	Frustrations []string `json:"frustrations,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"` // filled by image enrichment
}

// PersonasResult is the buyer persona analysis.
type PersonasResult struct {
	Personas []Persona `json:"personas"`
}

func (PersonasResult) AnalysisType() Type { return TypePersonas }

// CompetitorProfile compares the product to one named competitor.
type CompetitorProfile struct {
	Name          string   `json:"name"`
	Advantages    []string `json:"advantages,omitempty"`    // where we win
	Disadvantages []string `json:"disadvantages,omitempty"` // where they win
	Mentions      int      `json:"mentions,omitempty"`
}

// CompetitionResult is the review-driven competitive landscape analysis.
type CompetitionResult struct {
	Competitors    []CompetitorProfile `json:"competitors"`
	MarketPosition string              `json:"marketPosition,omitempty"`
}

func (CompetitionResult) AnalysisType() Type { return TypeCompetition }

// CompetitorComparison is a head-to-head comparison backed by both sides'
// analysis snapshots.
type CompetitorComparison struct {
	CompetitorName string   `json:"competitorName"`
	Verdict        string   `json:"verdict"` // ahead, behind, even
	WeWin          []string `json:"weWin,omitempty"`
	TheyWin        []string `json:"theyWin,omitempty"`
	Narrative      string   `json:"narrative,omitempty"`
}

// SmartCompetitionResult is the cross-competitor strategic comparison.
type SmartCompetitionResult struct {
	Comparisons []CompetitorComparison `json:"comparisons"`
	Advantages  []string               `json:"advantages,omitempty"`
	Threats     []string               `json:"threats,omitempty"`
	Summary     string                 `json:"summary,omitempty"`
}

func (SmartCompetitionResult) AnalysisType() Type { return TypeSmartCompetition }

// Recommendation is one actionable strategic recommendation.
type Recommendation struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale,omitempty"`
	Priority  string `json:"priority,omitempty"` // high, medium, low
}

// StrategicRecommendationsResult lists prioritized recommendations.
type StrategicRecommendationsResult struct {
	Recommendations []Recommendation `json:"recommendations"`
}

func (StrategicRecommendationsResult) AnalysisType() Type { return TypeStrategicRecommendations }

// RatingAnalysisResult breaks down the rating distribution and its drivers.
type RatingAnalysisResult struct {
	Average         float64        `json:"average"`
	Distribution    map[string]int `json:"distribution"` // "1".."5" -> count
	PositiveDrivers []string       `json:"positiveDrivers,omitempty"`
	NegativeDrivers []string       `json:"negativeDrivers,omitempty"`
	Trend           string         `json:"trend,omitempty"`
}

func (RatingAnalysisResult) AnalysisType() Type { return TypeRatingAnalysis }

// DecodePayload unmarshals raw JSON into the concrete payload for t.
// The switch is intentionally exhaustive over the catalog.
func DecodePayload(t Type, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)

	switch t {
	case TypeProductDescription:
		v := &ProductDescriptionResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeSentiment:
		v := &SentimentResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeVoiceOfCustomer:
		v := &VoiceOfCustomerResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeFourWMatrix:
		v := &FourWMatrixResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeJTBD:
		v := &JTBDResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeSTP:
		v := &STPResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeSWOT:
		v := &SWOTResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeCustomerJourney:
		v := &CustomerJourneyResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypePersonas:
		v := &PersonasResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeCompetition:
		v := &CompetitionResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeSmartCompetition:
		v := &SmartCompetitionResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeStrategicRecommendations:
		v := &StrategicRecommendationsResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	case TypeRatingAnalysis:
		v := &RatingAnalysisResult{}
		err = json.Unmarshal(raw, v)
		p = *v
	default:
		return nil, fmt.Errorf("unknown analysis type: %q", t)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// EncodePayload marshals a payload and verifies it matches the declared type.
func EncodePayload(t Type, p Payload) (json.RawMessage, error) {
	if p.AnalysisType() != t {
		return nil, fmt.Errorf("payload type %s does not match analysis type %s", p.AnalysisType(), t)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return raw, nil
}
