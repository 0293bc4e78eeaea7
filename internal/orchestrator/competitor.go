package orchestrator

import (
	"context"

	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/completion"
	"github.com/reviewloop/insight-engine/internal/selector"
	"github.com/reviewloop/insight-engine/internal/storage"
)

// competitorBattery is the reduced set of analyses run per competitor as
// auxiliary context for smart_competition.
var competitorBattery = []analysis.Type{
	analysis.TypeProductDescription,
	analysis.TypeSWOT,
	analysis.TypeSTP,
	analysis.TypeCustomerJourney,
}

// runCompetitorBattery builds the transient per-competitor analysis bundle.
// Competitors run sequentially; each sub-analysis is skipped individually on
// an empty pool or executor failure, and one competitor's failures never
// block the others. Nothing here is persisted.
func (o *Orchestrator) runCompetitorBattery(ctx context.Context, product *storage.Product, competitors []*storage.Competitor) analysis.CompetitorBundle {
	bundle := make(analysis.CompetitorBundle, len(competitors))
	for _, competitor := range competitors {
		snapshot := o.analyzeCompetitor(ctx, product, competitor)
		bundle[competitor.ID] = snapshot
	}
	return bundle
}

func (o *Orchestrator) analyzeCompetitor(ctx context.Context, product *storage.Product, competitor *storage.Competitor) *analysis.CompetitorSnapshot {
	log := o.logger.WithProduct(product.ID.String()).WithOperation("competitor_analysis")
	snapshot := &analysis.CompetitorSnapshot{
		CompetitorID: competitor.ID,
		Name:         competitor.Name,
	}

	for _, t := range competitorBattery {
		competitorID := competitor.ID
		reviews, err := o.selector.Select(ctx, selector.Request{
			TenantID:     product.TenantID,
			ProductID:    product.ID,
			AnalysisType: t,
			TargetCount:  analysis.ReviewCount(t),
			CompetitorID: &competitorID,
			ProductName:  competitor.Name,
		})
		if err != nil {
			log.Warn().Err(err).Str("competitor", competitor.Name).Str("analysis_type", string(t)).
				Msg("competitor review selection failed, skipping sub-analysis")
			continue
		}
		if len(reviews) == 0 {
			log.Info().Str("competitor", competitor.Name).Str("analysis_type", string(t)).
				Msg("no competitor reviews, skipping sub-analysis")
			continue
		}

		var extras map[string]any
		if t == analysis.TypeSWOT {
			// Competitor SWOT is restricted to the halves smart_competition
			// actually consumes.
			extras = map[string]any{"sections": []string{"strengths", "weaknesses"}}
		}

		result, err := o.executor.Execute(ctx, completion.Request{
			Type:        t,
			ProductName: competitor.Name,
			Reviews:     reviews,
			Extras:      extras,
		})
		if err != nil {
			log.Warn().Err(err).Str("competitor", competitor.Name).Str("analysis_type", string(t)).
				Msg("competitor sub-analysis failed, skipping")
			continue
		}

		switch payload := result.Payload.(type) {
		case analysis.ProductDescriptionResult:
			snapshot.Description = &payload
		case analysis.SWOTResult:
			payload.Opportunities = nil
			payload.Threats = nil
			snapshot.SWOT = &payload
		case analysis.STPResult:
			snapshot.STP = &payload
		case analysis.CustomerJourneyResult:
			snapshot.CustomerJourney = &payload
		}
	}

	return snapshot
}
