package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestProductRepository_TenantScoping(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	tenantA := uuid.New()
	tenantB := uuid.New()
	product := &Product{TenantID: tenantA, Name: "BlendMax"}
	require.NoError(t, repos.Products.Create(ctx, product))

	got, err := repos.Products.GetByID(ctx, tenantA, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "BlendMax", got.Name)

	// The wrong tenant sees nothing, same as a missing product.
	_, err = repos.Products.GetByID(ctx, tenantB, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepository_SetProcessing(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	product := &Product{TenantID: uuid.New(), Name: "BlendMax"}
	require.NoError(t, repos.Products.Create(ctx, product))

	require.NoError(t, repos.Products.SetProcessing(ctx, product.ID, true))
	got, err := repos.Products.GetByID(ctx, product.TenantID, product.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessing)

	require.NoError(t, repos.Products.SetProcessing(ctx, product.ID, false))
	got, err = repos.Products.GetByID(ctx, product.TenantID, product.ID)
	require.NoError(t, err)
	assert.False(t, got.IsProcessing)

	assert.ErrorIs(t, repos.Products.SetProcessing(ctx, uuid.New(), true), ErrNotFound)
}

func TestAnalysisRepository_UpsertIsIdempotentPerType(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	productID := uuid.New()
	failure := "completion error: rate limited"

	first := &Analysis{
		ProductID: productID,
		Type:      analysis.TypeSWOT,
		Status:    analysis.StatusFailed,
		Error:     &failure,
	}
	require.NoError(t, repos.Analyses.Upsert(ctx, first))

	second := &Analysis{
		ProductID: productID,
		Type:      analysis.TypeSWOT,
		Status:    analysis.StatusCompleted,
		Data:      json.RawMessage(`{"strengths":["motor"]}`),
	}
	require.NoError(t, repos.Analyses.Upsert(ctx, second))

	// Exactly one row remains, holding the second run's outcome.
	all, err := repos.Analyses.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, analysis.StatusCompleted, got.Status)
	assert.JSONEq(t, `{"strengths":["motor"]}`, string(got.Data))
	assert.Nil(t, got.Error, "a successful retry clears the previous error")
}

func TestAnalysisRepository_GetByProductAndType(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	productID := uuid.New()
	require.NoError(t, repos.Analyses.Upsert(ctx, &Analysis{
		ProductID: productID,
		Type:      analysis.TypeSentiment,
		Status:    analysis.StatusCompleted,
		Data:      json.RawMessage(`{"overall":"positive"}`),
	}))

	got, err := repos.Analyses.GetByProductAndType(ctx, productID, analysis.TypeSentiment)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, got.Status)

	_, err = repos.Analyses.GetByProductAndType(ctx, productID, analysis.TypeSWOT)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalysisRepository_ListByProduct_CatalogOrder(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	productID := uuid.New()
	// Insert out of catalog order.
	for _, typ := range []analysis.Type{analysis.TypeSWOT, analysis.TypeProductDescription, analysis.TypeRatingAnalysis} {
		require.NoError(t, repos.Analyses.Upsert(ctx, &Analysis{
			ProductID: productID,
			Type:      typ,
			Status:    analysis.StatusCompleted,
		}))
	}

	all, err := repos.Analyses.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, analysis.TypeProductDescription, all[0].Type)
	assert.Equal(t, analysis.TypeSWOT, all[1].Type)
	assert.Equal(t, analysis.TypeRatingAnalysis, all[2].Type)
}

func TestCompetitorRepository_ListByProduct(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	productID := uuid.New()
	require.NoError(t, repos.Competitors.Create(ctx, &Competitor{ProductID: productID, Name: "MixRival"}))
	require.NoError(t, repos.Competitors.Create(ctx, &Competitor{ProductID: productID, Name: "Blendurance"}))
	require.NoError(t, repos.Competitors.Create(ctx, &Competitor{ProductID: uuid.New(), Name: "Unrelated"}))

	competitors, err := repos.Competitors.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, competitors, 2)
	assert.Equal(t, "Blendurance", competitors[0].Name)
	assert.Equal(t, "MixRival", competitors[1].Name)
}
