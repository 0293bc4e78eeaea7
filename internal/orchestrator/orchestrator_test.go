package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/completion"
	"github.com/reviewloop/insight-engine/internal/config"
	"github.com/reviewloop/insight-engine/internal/imagegen"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/selector"
	"github.com/reviewloop/insight-engine/internal/storage"
)

// stubSelector scripts review selection per request.
type stubSelector struct {
	fn func(ctx context.Context, req selector.Request) ([]analysis.Review, error)
}

func (s *stubSelector) Select(ctx context.Context, req selector.Request) ([]analysis.Review, error) {
	return s.fn(ctx, req)
}

func reviewsFor(req selector.Request, n int) []analysis.Review {
	out := make([]analysis.Review, n)
	for i := range out {
		out[i] = analysis.Review{
			ID:           uuid.New(),
			ProductID:    req.ProductID,
			CompetitorID: req.CompetitorID,
			Text:         fmt.Sprintf("review %d for %s", i, req.AnalysisType),
			Rating:       4,
			WordCount:    40,
		}
	}
	return out
}

func alwaysReviews(n int) *stubSelector {
	return &stubSelector{fn: func(ctx context.Context, req selector.Request) ([]analysis.Review, error) {
		return reviewsFor(req, n), nil
	}}
}

type testHarness struct {
	repos     *storage.Repositories
	executor  *completion.MockExecutor
	images    *imagegen.MockGenerator
	orch      *Orchestrator
	tenantID  uuid.UUID
	productID uuid.UUID
	sleeps    *int
}

func newHarness(t *testing.T, sel ReviewSelector) *testHarness {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:", JournalMode: "MEMORY"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(ctx, db))

	repos := storage.NewRepositories(db)
	executor := completion.NewMockExecutor()
	images := imagegen.NewMockGenerator()

	orch := New(repos, sel, executor, images, config.OrchestratorConfig{PacingInterval: time.Second}, observability.Nop())
	sleeps := 0
	orch.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	h := &testHarness{
		repos:     repos,
		executor:  executor,
		images:    images,
		orch:      orch,
		tenantID:  uuid.New(),
		productID: uuid.New(),
		sleeps:    &sleeps,
	}
	require.NoError(t, repos.Products.Create(ctx, &storage.Product{
		ID:       h.productID,
		TenantID: h.tenantID,
		Name:     "AcmePress espresso machine",
	}))
	return h
}

func (h *testHarness) addCompetitor(t *testing.T, name string) uuid.UUID {
	t.Helper()
	c := &storage.Competitor{ID: uuid.New(), ProductID: h.productID, Name: name}
	require.NoError(t, h.repos.Competitors.Create(context.Background(), c))
	return c.ID
}

func (h *testHarness) analysisRow(t *testing.T, at analysis.Type) *storage.Analysis {
	t.Helper()
	row, err := h.repos.Analyses.GetByProductAndType(context.Background(), h.productID, at)
	require.NoError(t, err)
	return row
}

func TestRunAllWithoutCompetitors(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))

	summary, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Len(t, summary.Completed, len(analysis.Catalog)-2,
		"competition and smart_competition are skipped without competitors")
	assert.NotContains(t, summary.Completed, analysis.TypeCompetition)
	assert.NotContains(t, summary.Completed, analysis.TypeSmartCompetition)

	// Skipped types leave no row of any status behind.
	_, err = h.repos.Analyses.GetByProductAndType(context.Background(), h.productID, analysis.TypeCompetition)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = h.repos.Analyses.GetByProductAndType(context.Background(), h.productID, analysis.TypeSmartCompetition)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, len(analysis.Catalog)-1, *h.sleeps, "pacing applies between types, not after the last")

	product, err := h.repos.Products.GetByID(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)
	assert.False(t, product.IsProcessing, "processing flag is cleared after the run")
}

func TestRunAllWithCompetitors(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	competitorID := h.addCompetitor(t, "BrewRival 9000")

	summary, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Contains(t, summary.Completed, analysis.TypeCompetition)
	assert.Contains(t, summary.Completed, analysis.TypeSmartCompetition)

	// The competitor battery runs the reduced set once per competitor in
	// addition to the product's own analyses.
	assert.Len(t, h.executor.RequestsFor(analysis.TypeProductDescription), 2)
	assert.Len(t, h.executor.RequestsFor(analysis.TypeSWOT), 2)
	assert.Len(t, h.executor.RequestsFor(analysis.TypeSTP), 2)
	assert.Len(t, h.executor.RequestsFor(analysis.TypeCustomerJourney), 2)
	assert.Len(t, h.executor.RequestsFor(analysis.TypeSentiment), 1)

	smartReqs := h.executor.RequestsFor(analysis.TypeSmartCompetition)
	require.Len(t, smartReqs, 1)
	bundle, ok := smartReqs[0].Extras["competitorAnalyses"].(analysis.CompetitorBundle)
	require.True(t, ok, "smart_competition receives the competitor bundle")
	snapshot := bundle[competitorID]
	require.NotNil(t, snapshot)
	assert.Equal(t, "BrewRival 9000", snapshot.Name)
	require.NotNil(t, snapshot.SWOT)
	assert.Empty(t, snapshot.SWOT.Opportunities, "competitor SWOT keeps strengths and weaknesses only")
	assert.Empty(t, snapshot.SWOT.Threats)
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.executor.Fail(analysis.TypeSentiment, errors.New("upstream timeout"))

	summary, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	assert.True(t, summary.Success, "one failure does not sink the run")
	assert.NotContains(t, summary.Completed, analysis.TypeSentiment)
	require.NotEmpty(t, summary.Errors)
	assert.Contains(t, summary.Errors[0], "sentiment")

	row := h.analysisRow(t, analysis.TypeSentiment)
	assert.Equal(t, analysis.StatusFailed, row.Status)
	require.NotNil(t, row.Error)
	assert.Contains(t, *row.Error, "upstream timeout")

	// Types after the failed one were still attempted.
	last := h.analysisRow(t, analysis.TypeRatingAnalysis)
	assert.Equal(t, analysis.StatusCompleted, last.Status)
}

func TestRunAllEmptyPoolIsSoft(t *testing.T) {
	sel := &stubSelector{fn: func(ctx context.Context, req selector.Request) ([]analysis.Review, error) {
		if req.AnalysisType == analysis.TypeSentiment {
			return nil, nil
		}
		return reviewsFor(req, 3), nil
	}}
	h := newHarness(t, sel)

	summary, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.NotContains(t, summary.Completed, analysis.TypeSentiment)

	// An empty pool writes no row; the condition only surfaces in the summary.
	_, err = h.repos.Analyses.GetByProductAndType(context.Background(), h.productID, analysis.TypeSentiment)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var sentimentStep *StepResult
	for i := range summary.Steps {
		if summary.Steps[i].Type == analysis.TypeSentiment {
			sentimentStep = &summary.Steps[i]
		}
	}
	require.NotNil(t, sentimentStep)
	assert.Equal(t, OutcomeEmptyPool, sentimentStep.Outcome)
}

func TestRunAllUnknownProduct(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))

	_, err := h.orch.RunAll(context.Background(), h.tenantID, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = h.orch.RunAll(context.Background(), uuid.New(), h.productID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "a foreign tenant cannot run analyses")
}

func TestRunAllRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))

	require.True(t, h.orch.guard.acquire(h.productID))
	defer h.orch.guard.release(h.productID)

	_, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.TypeSentiment)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunAllSkipsSmartCompetitionWithoutPrerequisites(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.addCompetitor(t, "BrewRival 9000")
	h.executor.Fail(analysis.TypeSWOT, errors.New("upstream timeout"))

	summary, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	assert.NotContains(t, summary.Completed, analysis.TypeSmartCompetition)
	_, err = h.repos.Analyses.GetByProductAndType(context.Background(), h.productID, analysis.TypeSmartCompetition)
	assert.ErrorIs(t, err, storage.ErrNotFound,
		"smart_competition is never attempted while a prerequisite is not completed")

	var step *StepResult
	for i := range summary.Steps {
		if summary.Steps[i].Type == analysis.TypeSmartCompetition {
			step = &summary.Steps[i]
		}
	}
	require.NotNil(t, step)
	assert.Equal(t, OutcomeSkipped, step.Outcome)
}

func TestRunOneRetryOverwritesFailure(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.executor.FailOnce(analysis.TypeSentiment, errors.New("rate limited"))

	step, err := h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.TypeSentiment)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, step.Outcome)

	row := h.analysisRow(t, analysis.TypeSentiment)
	assert.Equal(t, analysis.StatusFailed, row.Status)
	require.NotNil(t, row.Error)

	step, err = h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.TypeSentiment)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, step.Outcome)

	row = h.analysisRow(t, analysis.TypeSentiment)
	assert.Equal(t, analysis.StatusCompleted, row.Status)
	assert.Nil(t, row.Error, "retry clears the previous error in place")

	rows, err := h.repos.Analyses.ListByProduct(context.Background(), h.productID)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "retries overwrite the same row")
}

func TestRunOneSkipsSmartCompetitionGating(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.addCompetitor(t, "BrewRival 9000")

	// No prerequisite rows exist; RunOne still executes by contract.
	step, err := h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.TypeSmartCompetition)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, step.Outcome)

	row := h.analysisRow(t, analysis.TypeSmartCompetition)
	assert.Equal(t, analysis.StatusCompleted, row.Status)
}

func TestRunOneRejectsUnknownType(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))

	_, err := h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.Type("astrology"))
	assert.Error(t, err)
}

func TestPersonaImageEnrichment(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.executor.Respond(analysis.TypePersonas, analysis.PersonasResult{Personas: []analysis.Persona{
		{Name: "Daily Commuter", Description: "brews a double shot before a long train ride"},
		{Name: "Weekend Host", Description: "makes rounds of lattes for guests"},
	}})

	step, err := h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.TypePersonas)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, step.Outcome)

	row := h.analysisRow(t, analysis.TypePersonas)
	var personas analysis.PersonasResult
	require.NoError(t, json.Unmarshal(row.Data, &personas))
	require.Len(t, personas.Personas, 2)
	for _, p := range personas.Personas {
		assert.NotEmpty(t, p.ImageURL)
	}
	assert.Len(t, h.images.Calls(), 2)
}

func TestPersonaImageFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.images.Fail(errors.New("image service down"))

	step, err := h.orch.RunOne(context.Background(), h.tenantID, h.productID, analysis.TypePersonas)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, step.Outcome, "enrichment failure never fails the analysis")

	row := h.analysisRow(t, analysis.TypePersonas)
	assert.Equal(t, analysis.StatusCompleted, row.Status)
	var personas analysis.PersonasResult
	require.NoError(t, json.Unmarshal(row.Data, &personas))
	for _, p := range personas.Personas {
		assert.Empty(t, p.ImageURL)
	}
}

func TestStatusReport(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.executor.Fail(analysis.TypeSentiment, errors.New("upstream timeout"))

	_, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	report, err := h.orch.Status(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)

	assert.False(t, report.IsProcessing)
	assert.Equal(t, len(analysis.Catalog)-2, report.TotalExpectedTypes,
		"competitor-dependent types are excluded without competitors")
	assert.Contains(t, report.FailedTypes, analysis.TypeSentiment)
	assert.Contains(t, report.CompletedTypes, analysis.TypeProductDescription)
	assert.NotEmpty(t, report.Analyses)
}

func TestStatusRequiresOwnership(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))

	_, err := h.orch.Status(context.Background(), uuid.New(), h.productID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCompetitorBatteryIsolation(t *testing.T) {
	h := newHarness(t, alwaysReviews(3))
	h.addCompetitor(t, "BrewRival 9000")
	weak := h.addCompetitor(t, "NoReviewsCo")

	sel := &stubSelector{fn: func(ctx context.Context, req selector.Request) ([]analysis.Review, error) {
		if req.CompetitorID != nil && *req.CompetitorID == weak {
			return nil, nil
		}
		return reviewsFor(req, 3), nil
	}}
	h.orch.selector = sel

	summary, err := h.orch.RunAll(context.Background(), h.tenantID, h.productID)
	require.NoError(t, err)
	assert.Contains(t, summary.Completed, analysis.TypeSmartCompetition)

	smartReqs := h.executor.RequestsFor(analysis.TypeSmartCompetition)
	require.Len(t, smartReqs, 1)
	bundle := smartReqs[0].Extras["competitorAnalyses"].(analysis.CompetitorBundle)
	require.Len(t, bundle, 2, "a review-less competitor still appears in the bundle")
	assert.Nil(t, bundle[weak].SWOT)
	assert.Nil(t, bundle[weak].Description)
}
