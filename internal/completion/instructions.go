package completion

import (
	"fmt"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// instructions holds the per-type system instruction. Each instruction pins
// the model to the JSON schema DecodePayload expects for that type.
var instructions = map[analysis.Type]string{
	analysis.TypeProductDescription: `Summarize what this product is and how customers frame it, from their reviews alone.
Respond with JSON: {"summary", "positioning", "keyFeatures": [], "useCases": []}.`,

	analysis.TypeSentiment: `Analyze overall sentiment across the reviews.
Respond with JSON: {"overall", "score", "positiveShare", "negativeShare", "neutralShare", "themes": [{"theme","polarity","share"}], "notableMentions": []}.`,

	analysis.TypeVoiceOfCustomer: `Extract the customers' own language, grouped by theme, with verbatim quotes.
Respond with JSON: {"themes": [{"name","quotes":[{"quote","theme","rating"}]}], "vocabulary": []}.`,

	analysis.TypeFourWMatrix: `Build a 4W matrix: who buys this product, what they use it for, when, and where.
Respond with JSON: {"who": [], "what": [], "when": [], "where": []}.`,

	analysis.TypeJTBD: `Identify the jobs customers hire this product to do.
Respond with JSON: {"jobs": [{"job","context","desiredOutcome","supportingQuotes":[]}]}.`,

	analysis.TypeSTP: `Produce a segmentation/targeting/positioning analysis.
Respond with JSON: {"segments": [{"name","description","characteristics":[]}], "targeting", "positioning"}.`,

	analysis.TypeSWOT: `Produce a SWOT analysis grounded in the reviews.
Respond with JSON: {"strengths": [], "weaknesses": [], "opportunities": [], "threats": []}.`,

	analysis.TypeCustomerJourney: `Map the customer journey stages evidenced in the reviews.
Respond with JSON: {"stages": [{"stage","experience","painPoints":[],"highlights":[]}]}.`,

	analysis.TypePersonas: `Synthesize distinct buyer personas from the reviews.
Respond with JSON: {"personas": [{"name","age","occupation","description","goals":[],"frustrations":[]}]}.`,

	analysis.TypeCompetition: `Analyze competitors mentioned in the reviews and our relative position.
Respond with JSON: {"competitors": [{"name","advantages":[],"disadvantages":[],"mentions"}], "marketPosition"}.`,

	analysis.TypeSmartCompetition: `Compare this product head-to-head against each competitor using the provided competitor analysis context.
Respond with JSON: {"comparisons": [{"competitorName","verdict","weWin":[],"theyWin":[],"narrative"}], "advantages": [], "threats": [], "summary"}.`,

	analysis.TypeStrategicRecommendations: `Derive prioritized strategic recommendations from the reviews.
Respond with JSON: {"recommendations": [{"title","rationale","priority"}]}.`,

	analysis.TypeRatingAnalysis: `Break down the rating distribution and what drives high and low ratings.
Respond with JSON: {"average", "distribution": {"1".."5"}, "positiveDrivers": [], "negativeDrivers": [], "trend"}.`,
}

const baseInstruction = "You are a qualitative market research analyst. Work only from the supplied customer reviews. Respond with a single JSON object and nothing else."

func systemInstruction(t analysis.Type) string {
	if inst, ok := instructions[t]; ok {
		return fmt.Sprintf("%s\n\n%s", baseInstruction, inst)
	}
	return baseInstruction
}
