package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/completion"
	"github.com/reviewloop/insight-engine/internal/config"
	"github.com/reviewloop/insight-engine/internal/embedding"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/orchestrator"
	"github.com/reviewloop/insight-engine/internal/selector"
	"github.com/reviewloop/insight-engine/internal/storage"
	"github.com/reviewloop/insight-engine/internal/vectorindex"
)

type apiHarness struct {
	server   *httptest.Server
	tenantID uuid.UUID
	repos    *storage.Repositories
	index    *vectorindex.MemoryIndex
	embedder *embedding.MockClient
}

func newAPIHarness(t *testing.T) *apiHarness {
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
	index := vectorindex.NewMemoryIndex()
	embedder := embedding.NewMockClient(16)
	logger := observability.Nop()

	sel := selector.New(index, embedder, nil, selector.DefaultProfiles(), config.SelectorConfig{}, logger)
	orch := orchestrator.New(repos, sel, completion.NewMockExecutor(), nil,
		config.OrchestratorConfig{PacingInterval: time.Millisecond}, logger)

	cfg := &config.Config{}
	cfg.Server.WriteTimeout = time.Minute

	server := httptest.NewServer(NewRouter(logger, cfg, repos, orch))
	t.Cleanup(server.Close)

	return &apiHarness{
		server:   server,
		tenantID: uuid.New(),
		repos:    repos,
		index:    index,
		embedder: embedder,
	}
}

func (h *apiHarness) request(t *testing.T, method, path string, body any, tenant string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (h *apiHarness) createProduct(t *testing.T, name string, competitors ...string) uuid.UUID {
	t.Helper()
	resp := h.request(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name":        name,
		"competitors": competitors,
	}, h.tenantID.String())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	id, err := uuid.Parse(body["id"].(string))
	require.NoError(t, err)
	return id
}

func (h *apiHarness) seedReviews(t *testing.T, productID uuid.UUID, count int) {
	t.Helper()
	ctx := context.Background()
	namespace := vectorindex.Namespace(h.tenantID, productID)
	items := make([]vectorindex.Item, 0, count)
	for i := 0; i < count; i++ {
		r := analysis.Review{
			ID:        uuid.New(),
			ProductID: productID,
			Text:      fmt.Sprintf("review %d about grind consistency and daily cleanup", i),
			Rating:    float64(i%5 + 1),
			WordCount: 30,
		}
		vec, err := h.embedder.EmbedSingle(ctx, r.Text)
		require.NoError(t, err)
		items = append(items, vectorindex.Item{
			ID:       r.ID.String(),
			Values:   vec,
			Metadata: vectorindex.ReviewMetadata(r),
		})
	}
	require.NoError(t, h.index.Upsert(ctx, namespace, items))
}

func TestHealthEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodGet, "/health", nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.request(t, http.MethodGet, "/ready", nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTenantHeaderRequired(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodGet, "/api/v1/products", nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.request(t, http.MethodGet, "/api/v1/products", nil, "not-a-uuid")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	productID := h.createProduct(t, "AcmePress espresso machine", "BrewRival 9000")

	resp := h.request(t, http.MethodGet, "/api/v1/products/"+productID.String(), nil, h.tenantID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	product := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "AcmePress espresso machine", product["name"])
	assert.Len(t, product["competitors"], 1)

	// Another tenant cannot see the product.
	resp = h.request(t, http.MethodGet, "/api/v1/products/"+productID.String(), nil, uuid.New().String())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunAndStatusFlow(t *testing.T) {
	h := newAPIHarness(t)
	productID := h.createProduct(t, "AcmePress espresso machine")
	h.seedReviews(t, productID, 40)

	resp := h.request(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/analyses/run", productID), nil, h.tenantID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, summary["success"])

	resp = h.request(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%s/analyses/status", productID), nil, h.tenantID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeBody[map[string]any](t, resp)
	assert.Equal(t, false, status["isProcessing"])
	assert.NotEmpty(t, status["completedTypes"])

	resp = h.request(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%s/analyses/sentiment", productID), nil, h.tenantID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	row := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "completed", row["status"])
	assert.NotNil(t, row["data"])
}

func TestRunOneValidation(t *testing.T) {
	h := newAPIHarness(t)
	productID := h.createProduct(t, "AcmePress espresso machine")

	resp := h.request(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/analyses/astrology/run", productID), nil, h.tenantID.String())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.request(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/analyses/run", uuid.New()), nil, h.tenantID.String())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
