package selector

import (
	"strings"
	"time"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// scoreReview combines the five factors into a single weighted score.
// Every component is on a 0-100 scale before weighting.
func scoreReview(p Profile, w Weights, review analysis.Review, similarity float64, now time.Time) float64 {
	return w.Semantic*semanticScore(similarity) +
		w.Length*lengthScore(p.Length, review.WordCount) +
		w.Recency*recencyScore(review.Date, now) +
		w.Rating*ratingScore(p.Rating, review.Rating) +
		w.Keyword*keywordScore(p.Keywords, review.Text)
}

// semanticScore scales cosine similarity onto 0-100. Negative similarity is
// clamped to zero rather than penalized further.
func semanticScore(similarity float64) float64 {
	if similarity <= 0 {
		return 0
	}
	if similarity >= 1 {
		return 100
	}
	return similarity * 100
}

// lengthScore ramps from 0 to 50 below the minimum, 50 to 100 between
// minimum and ideal, falls back to 50 at the maximum, and keeps decaying
// past it, clamped at zero.
func lengthScore(band LengthBand, wordCount int) float64 {
	if wordCount <= 0 {
		return 0
	}
	wc := float64(wordCount)
	min, ideal, max := float64(band.Min), float64(band.Ideal), float64(band.Max)
	switch {
	case wc < min:
		return 50 * wc / min
	case wc <= ideal:
		return 50 + 50*(wc-min)/(ideal-min)
	case wc <= max:
		return 100 - 50*(wc-ideal)/(max-ideal)
	default:
		score := 50 - 50*(wc-max)/max
		if score < 0 {
			return 0
		}
		return score
	}
}

// recencyScore buckets the review's age in days. Reviews without a date get
// a neutral 50.
func recencyScore(date *time.Time, now time.Time) float64 {
	if date == nil || date.IsZero() {
		return 50
	}
	age := now.Sub(*date).Hours() / 24
	switch {
	case age <= 180:
		return 100
	case age <= 360:
		return 80
	case age <= 720:
		return 60
	case age <= 1095:
		return 40
	default:
		return 20
	}
}

// ratingScore applies the profile's rating policy. The extremes policy pulls
// in strongly negative and strongly positive reviews; the balanced policy is
// indifferent; the default mildly favors the extremes.
func ratingScore(policy RatingPolicy, rating float64) float64 {
	switch policy {
	case RatingPolicyExtremes:
		switch {
		case rating <= 2 || rating >= 4.5:
			return 100
		case rating <= 2.5 || rating >= 4:
			return 70
		default:
			return 40
		}
	case RatingPolicyBalanced:
		return 80
	default:
		if rating <= 2 || rating >= 4.5 {
			return 90
		}
		return 70
	}
}

// keywordScore awards 20 points per matched keyword, capped at 100. Matching
// is a case-insensitive substring check.
func keywordScore(keywords []string, text string) float64 {
	if len(keywords) == 0 || text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 20
			if score >= 100 {
				return 100
			}
		}
	}
	return score
}
