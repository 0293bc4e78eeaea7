// Package orchestrator walks the analysis catalog for a product: selecting
// reviews, executing each analysis, persisting results, and pacing calls to
// stay under external rate limits. Individual analysis failures never abort
// a run; only ownership and existence problems do.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/completion"
	"github.com/reviewloop/insight-engine/internal/config"
	"github.com/reviewloop/insight-engine/internal/imagegen"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/selector"
	"github.com/reviewloop/insight-engine/internal/storage"
)

// ErrRunInProgress is returned when a run is requested for a product that
// already has one active in this process.
var ErrRunInProgress = errors.New("an analysis run is already in progress for this product")

const defaultPacingInterval = 15 * time.Second

// ReviewSelector selects the review sample for one analysis.
type ReviewSelector interface {
	Select(ctx context.Context, req selector.Request) ([]analysis.Review, error)
}

// Outcome is the terminal state of one catalog step.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeEmptyPool Outcome = "empty_pool"
)

// StepResult is the outcome of one analysis type within a run.
type StepResult struct {
	Type    analysis.Type
	Outcome Outcome
	Err     error
}

// RunSummary aggregates a full catalog run. Success means at least one type
// completed; a run where everything was skipped or failed is not a success.
type RunSummary struct {
	Success   bool
	Completed []analysis.Type
	Steps     []StepResult
	Errors    []string
}

func (s *RunSummary) record(step StepResult) {
	s.Steps = append(s.Steps, step)
	switch step.Outcome {
	case OutcomeCompleted:
		s.Completed = append(s.Completed, step.Type)
	case OutcomeFailed, OutcomeEmptyPool:
		if step.Err != nil {
			s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", step.Type, step.Err))
		}
	}
}

// Orchestrator drives analysis runs for products.
type Orchestrator struct {
	repos    *storage.Repositories
	selector ReviewSelector
	executor completion.Executor
	images   imagegen.Generator
	logger   *observability.Logger

	pacing time.Duration
	// sleep is swapped in tests; the default honors context cancellation.
	sleep func(ctx context.Context, d time.Duration) error

	guard *runGuard
}

// New builds an orchestrator. The image generator is optional; pass nil to
// disable persona image enrichment.
func New(repos *storage.Repositories, sel ReviewSelector, exec completion.Executor, images imagegen.Generator, cfg config.OrchestratorConfig, logger *observability.Logger) *Orchestrator {
	pacing := cfg.PacingInterval
	if pacing <= 0 {
		pacing = defaultPacingInterval
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Orchestrator{
		repos:    repos,
		selector: sel,
		executor: exec,
		images:   images,
		logger:   logger,
		pacing:   pacing,
		sleep:    sleepContext,
		guard:    newRunGuard(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunAll walks the full analysis catalog for the product. The tenant must
// own the product. Per-type failures accumulate in the summary and the walk
// continues; only ownership and infrastructure problems return an error.
func (o *Orchestrator) RunAll(ctx context.Context, tenantID, productID uuid.UUID) (*RunSummary, error) {
	product, err := o.repos.Products.GetByID(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}

	if !o.guard.acquire(productID) {
		return nil, ErrRunInProgress
	}
	defer o.guard.release(productID)

	log := o.logger.WithTenant(tenantID.String()).WithProduct(productID.String())

	if err := o.repos.Products.SetProcessing(ctx, productID, true); err != nil {
		return nil, fmt.Errorf("mark product processing: %w", err)
	}
	defer func() {
		if err := o.repos.Products.SetProcessing(context.WithoutCancel(ctx), productID, false); err != nil {
			log.Error().Err(err).Msg("failed to clear processing flag")
		}
	}()

	competitors, err := o.repos.Competitors.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}

	log.Info().Int("competitors", len(competitors)).Msg("starting full analysis run")

	summary := &RunSummary{}
	for i, t := range analysis.Catalog {
		step := o.runStep(ctx, product, competitors, t)
		summary.record(step)

		if i < len(analysis.Catalog)-1 {
			if err := o.sleep(ctx, o.pacing); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("run interrupted: %s", err))
				break
			}
		}
	}

	summary.Success = len(summary.Completed) > 0
	log.Info().
		Bool("success", summary.Success).
		Int("completed", len(summary.Completed)).
		Int("errors", len(summary.Errors)).
		Msg("analysis run finished")
	return summary, nil
}

// RunOne retries a single analysis type, typically after a failure. It is
// best-effort: prerequisite gating for smart_competition is not re-checked
// here, and no competitor sub-analyses are refreshed. Callers are
// responsible for invoking it only when prerequisites hold.
func (o *Orchestrator) RunOne(ctx context.Context, tenantID, productID uuid.UUID, t analysis.Type) (StepResult, error) {
	if !t.Valid() {
		return StepResult{}, fmt.Errorf("unknown analysis type %q", t)
	}

	product, err := o.repos.Products.GetByID(ctx, tenantID, productID)
	if err != nil {
		return StepResult{}, fmt.Errorf("load product %s: %w", productID, err)
	}

	if !o.guard.acquire(productID) {
		return StepResult{}, ErrRunInProgress
	}
	defer o.guard.release(productID)

	if err := o.repos.Products.SetProcessing(ctx, productID, true); err != nil {
		return StepResult{}, fmt.Errorf("mark product processing: %w", err)
	}
	defer func() {
		if err := o.repos.Products.SetProcessing(context.WithoutCancel(ctx), productID, false); err != nil {
			o.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to clear processing flag")
		}
	}()

	competitors, err := o.repos.Competitors.ListByProduct(ctx, productID)
	if err != nil {
		return StepResult{}, fmt.Errorf("list competitors: %w", err)
	}

	return o.executeStep(ctx, product, competitors, t), nil
}

// runStep applies the catalog gating before executing one type.
func (o *Orchestrator) runStep(ctx context.Context, product *storage.Product, competitors []*storage.Competitor, t analysis.Type) StepResult {
	log := o.logger.WithProduct(product.ID.String()).WithAnalysisType(string(t))

	if t.RequiresCompetitors() && len(competitors) == 0 {
		log.Info().Msg("skipping: product has no competitors")
		return StepResult{Type: t, Outcome: OutcomeSkipped}
	}

	if t == analysis.TypeSmartCompetition {
		ready, err := o.prerequisitesCompleted(ctx, product.ID)
		if err != nil {
			return StepResult{Type: t, Outcome: OutcomeFailed, Err: fmt.Errorf("check prerequisites: %w", err)}
		}
		if !ready {
			log.Info().Msg("skipping: prerequisite analyses are not completed")
			return StepResult{Type: t, Outcome: OutcomeSkipped}
		}
	}

	return o.executeStep(ctx, product, competitors, t)
}

// executeStep selects, executes, and persists one analysis type. It writes
// no row when the pool is empty, a failed row on selection or executor
// failure, and a completed row with the payload on success.
func (o *Orchestrator) executeStep(ctx context.Context, product *storage.Product, competitors []*storage.Competitor, t analysis.Type) StepResult {
	log := o.logger.WithProduct(product.ID.String()).WithAnalysisType(string(t))

	reviews, err := o.selector.Select(ctx, selector.Request{
		TenantID:     product.TenantID,
		ProductID:    product.ID,
		AnalysisType: t,
		TargetCount:  analysis.ReviewCount(t),
		ProductName:  product.Name,
	})
	if err != nil {
		err = fmt.Errorf("select reviews: %w", err)
		o.persistFailure(ctx, product.ID, t, err)
		return StepResult{Type: t, Outcome: OutcomeFailed, Err: err}
	}
	if len(reviews) == 0 {
		log.Warn().Msg("no reviews available, skipping analysis")
		return StepResult{Type: t, Outcome: OutcomeEmptyPool, Err: errors.New("no reviews available")}
	}

	var extras map[string]any
	switch t {
	case analysis.TypeCompetition:
		extras = map[string]any{"competitors": competitorTags(competitors)}
	case analysis.TypeSmartCompetition:
		bundle := o.runCompetitorBattery(ctx, product, competitors)
		extras = map[string]any{"competitorAnalyses": bundle}
	}

	o.persistProcessing(ctx, product.ID, t)

	started := time.Now()
	result, err := o.executor.Execute(ctx, completion.Request{
		Type:        t,
		ProductName: product.Name,
		Reviews:     reviews,
		Extras:      extras,
	})
	if err != nil {
		err = fmt.Errorf("execute analysis: %w", err)
		o.persistFailure(ctx, product.ID, t, err)
		return StepResult{Type: t, Outcome: OutcomeFailed, Err: err}
	}

	if err := o.repos.Analyses.Upsert(ctx, &storage.Analysis{
		ProductID: product.ID,
		Type:      t,
		Status:    analysis.StatusCompleted,
		Data:      result.Data,
	}); err != nil {
		err = fmt.Errorf("persist analysis: %w", err)
		return StepResult{Type: t, Outcome: OutcomeFailed, Err: err}
	}

	log.Info().Dur("elapsed", time.Since(started)).Int("reviews", len(reviews)).Msg("analysis completed")

	if t == analysis.TypePersonas || t == analysis.TypeSTP {
		o.enrichPersonaImages(ctx, product.ID)
	}

	return StepResult{Type: t, Outcome: OutcomeCompleted}
}

// prerequisitesCompleted reports whether every smart_competition
// prerequisite analysis holds completed status.
func (o *Orchestrator) prerequisitesCompleted(ctx context.Context, productID uuid.UUID) (bool, error) {
	for _, prereq := range analysis.SmartCompetitionPrerequisites {
		row, err := o.repos.Analyses.GetByProductAndType(ctx, productID, prereq)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if row.Status != analysis.StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

func (o *Orchestrator) persistProcessing(ctx context.Context, productID uuid.UUID, t analysis.Type) {
	err := o.repos.Analyses.Upsert(ctx, &storage.Analysis{
		ProductID: productID,
		Type:      t,
		Status:    analysis.StatusProcessing,
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("analysis_type", string(t)).Msg("failed to persist processing status")
	}
}

func (o *Orchestrator) persistFailure(ctx context.Context, productID uuid.UUID, t analysis.Type, cause error) {
	msg := cause.Error()
	err := o.repos.Analyses.Upsert(ctx, &storage.Analysis{
		ProductID: productID,
		Type:      t,
		Status:    analysis.StatusFailed,
		Error:     &msg,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("analysis_type", string(t)).Msg("failed to persist failure status")
	}
}

// enrichPersonaImages fills missing portrait URLs on the persisted personas
// analysis. Enrichment is best-effort: every failure is logged and
// swallowed, and personas that already carry an image are left alone.
func (o *Orchestrator) enrichPersonaImages(ctx context.Context, productID uuid.UUID) {
	if o.images == nil {
		return
	}
	log := o.logger.WithProduct(productID.String()).WithOperation("persona_image_enrichment")

	row, err := o.repos.Analyses.GetByProductAndType(ctx, productID, analysis.TypePersonas)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to load personas analysis")
		}
		return
	}
	if row.Status != analysis.StatusCompleted {
		return
	}

	var personas analysis.PersonasResult
	if err := json.Unmarshal(row.Data, &personas); err != nil {
		log.Warn().Err(err).Msg("failed to decode personas payload")
		return
	}

	changed := false
	for i := range personas.Personas {
		p := &personas.Personas[i]
		if p.ImageURL != "" || p.Description == "" {
			continue
		}
		url, err := o.images.GeneratePersonaImage(ctx, p.Description)
		if err != nil {
			log.Warn().Err(err).Str("persona", p.Name).Msg("persona image generation failed")
			continue
		}
		p.ImageURL = url
		changed = true
	}
	if !changed {
		return
	}

	data, err := json.Marshal(personas)
	if err != nil {
		log.Warn().Err(err).Msg("failed to re-encode personas payload")
		return
	}
	row.Data = data
	if err := o.repos.Analyses.Upsert(ctx, row); err != nil {
		log.Warn().Err(err).Msg("failed to persist persona images")
	}
}

func competitorTags(competitors []*storage.Competitor) []map[string]string {
	tags := make([]map[string]string, len(competitors))
	for i, c := range competitors {
		tags[i] = map[string]string{"id": c.ID.String(), "name": c.Name}
	}
	return tags
}
