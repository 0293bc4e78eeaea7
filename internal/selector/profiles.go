// Package selector implements the review selection algorithm: a rating-
// stratified pool fetch, multi-factor relevance scoring, and a balanced
// final pick under a target count.
package selector

import (
	"github.com/reviewloop/insight-engine/internal/analysis"
)

// Weights holds the relative weight of each scoring factor. They are
// hand-tuned defaults, not load-bearing business rules; inject different
// values to experiment.
type Weights struct {
	Semantic float64
	Length   float64
	Recency  float64
	Rating   float64
	Keyword  float64
}

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{
		Semantic: 0.4,
		Length:   0.2,
		Recency:  0.1,
		Rating:   0.2,
		Keyword:  0.1,
	}
}

// LengthBand is the ideal word-count band for an analysis type. Scores ramp
// up to the ideal and decay past the max.
type LengthBand struct {
	Min   int
	Ideal int
	Max   int
}

// RatingPolicy names how an analysis type values ratings.
type RatingPolicy string

const (
	// RatingPolicyExtremes favors strongly negative and strongly positive
	// reviews; used by types that feed on praise and complaints.
	RatingPolicyExtremes RatingPolicy = "extremes"
	// RatingPolicyBalanced treats every rating the same.
	RatingPolicyBalanced RatingPolicy = "balanced"
	// RatingPolicyDefault mildly favors the extremes.
	RatingPolicyDefault RatingPolicy = "default"
)

// Profile is the per-analysis-type scoring configuration.
type Profile struct {
	// TopicQuery is a short phrase capturing the type's semantic intent,
	// embedded once per selection and compared against each review.
	TopicQuery string
	Length     LengthBand
	Rating     RatingPolicy
	Keywords   []string
}

// Profiles maps analysis types to scoring profiles, with documented
// fallbacks for unconfigured types.
type Profiles struct {
	Weights  Weights
	ByType   map[analysis.Type]Profile
	Fallback Profile
}

// For returns the profile for an analysis type, or the fallback.
func (p Profiles) For(t analysis.Type) Profile {
	if profile, ok := p.ByType[t]; ok {
		return profile
	}
	return p.Fallback
}

// DefaultProfiles returns the hand-authored scoring configuration.
func DefaultProfiles() Profiles {
	return Profiles{
		Weights: DefaultWeights(),
		Fallback: Profile{
			TopicQuery: "customer experience with this product",
			Length:     LengthBand{Min: 20, Ideal: 60, Max: 150},
			Rating:     RatingPolicyDefault,
		},
		ByType: map[analysis.Type]Profile{
			analysis.TypeProductDescription: {
				TopicQuery: "what this product is and what it is used for",
				Length:     LengthBand{Min: 20, Ideal: 60, Max: 150},
				Rating:     RatingPolicyDefault,
				Keywords:   []string{"use", "bought", "works", "quality", "design"},
			},
			analysis.TypeSentiment: {
				TopicQuery: "how customers feel about this product, satisfaction and disappointment",
				Length:     LengthBand{Min: 15, Ideal: 50, Max: 120},
				Rating:     RatingPolicyExtremes,
				Keywords:   []string{"love", "hate", "disappointed", "amazing", "terrible", "happy"},
			},
			analysis.TypeVoiceOfCustomer: {
				TopicQuery: "customers describing their experience in their own words",
				Length:     LengthBand{Min: 30, Ideal: 80, Max: 200},
				Rating:     RatingPolicyBalanced,
				Keywords:   []string{"feel", "experience", "expected", "wish", "recommend"},
			},
			analysis.TypeFourWMatrix: {
				TopicQuery: "who uses this product, for what, when, and where",
				Length:     LengthBand{Min: 20, Ideal: 60, Max: 150},
				Rating:     RatingPolicyBalanced,
				Keywords:   []string{"wife", "husband", "kids", "work", "home", "gift", "daily"},
			},
			analysis.TypeJTBD: {
				TopicQuery: "the job or task customers bought this product to accomplish",
				Length:     LengthBand{Min: 25, Ideal: 70, Max: 160},
				Rating:     RatingPolicyDefault,
				Keywords:   []string{"needed", "solve", "problem", "task", "instead", "replace"},
			},
			analysis.TypeSTP: {
				TopicQuery: "what kind of customer this product suits and how it is positioned",
				Length:     LengthBand{Min: 20, Ideal: 60, Max: 150},
				Rating:     RatingPolicyDefault,
				Keywords:   []string{"beginner", "professional", "budget", "premium", "value"},
			},
			analysis.TypeSWOT: {
				TopicQuery: "strengths, weaknesses, and problems of this product",
				Length:     LengthBand{Min: 20, Ideal: 60, Max: 150},
				Rating:     RatingPolicyExtremes,
				Keywords:   []string{"best", "worst", "broke", "flaw", "excellent", "issue", "problem"},
			},
			analysis.TypeCustomerJourney: {
				TopicQuery: "the experience from buying and unboxing to daily use and support",
				Length:     LengthBand{Min: 30, Ideal: 90, Max: 200},
				Rating:     RatingPolicyDefault,
				Keywords:   []string{"arrived", "unbox", "setup", "first", "support", "return", "months"},
			},
			analysis.TypePersonas: {
				TopicQuery: "who the customer is, their lifestyle and why they bought this product",
				Length:     LengthBand{Min: 25, Ideal: 80, Max: 180},
				Rating:     RatingPolicyBalanced,
				Keywords:   []string{"i am", "my job", "lifestyle", "family", "hobby", "routine"},
			},
			analysis.TypeCompetition: {
				TopicQuery: "comparing this product with other brands and alternatives",
				Length:     LengthBand{Min: 20, Ideal: 70, Max: 160},
				Rating:     RatingPolicyDefault,
				Keywords:   []string{"compared", "better than", "switched", "alternative", "versus", "other brand"},
			},
			analysis.TypeSmartCompetition: {
				TopicQuery: "direct comparisons between this product and competing products",
				Length:     LengthBand{Min: 20, Ideal: 70, Max: 160},
				Rating:     RatingPolicyDefault,
				Keywords:   []string{"compared", "competitor", "switched", "versus", "upgrade"},
			},
			analysis.TypeStrategicRecommendations: {
				TopicQuery: "what customers want improved or changed about this product",
				Length:     LengthBand{Min: 25, Ideal: 70, Max: 160},
				Rating:     RatingPolicyExtremes,
				Keywords:   []string{"wish", "should", "improve", "missing", "if only", "suggestion"},
			},
			analysis.TypeRatingAnalysis: {
				TopicQuery: "why customers gave this product the rating they did",
				Length:     LengthBand{Min: 15, Ideal: 50, Max: 120},
				Rating:     RatingPolicyExtremes,
				Keywords:   []string{"stars", "rating", "because", "reason", "deducted"},
			},
		},
	}
}
