package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), 1},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_EmbedSingle(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	vec, err := client.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, vec)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_EmbedBatch_FansOutPerText(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, BatchSize: 3})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := client.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vecs[i][0], "order must be preserved")
	}
	assert.EqualValues(t, len(texts), calls.Load(), "one call per text")
}

func TestClient_EmbedBatch_Empty(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test", BaseURL: "http://unused"})
	require.NoError(t, err)

	vecs, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Error: &apiError{Message: "rate limited", Type: "rate_limit"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.EmbedSingle(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_DimensionFollowsProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{1, 2, 3, 4},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Dimension: 768, BatchSize: 10})
	require.NoError(t, err)

	// One full batch fans out ten concurrent calls that all see the smaller
	// provider dimension, while readers poll Dimension in parallel.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = client.Dimension()
		}
	}()

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = "review text"
	}
	vecs, err := client.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 10)
	<-done

	assert.Equal(t, 4, client.Dimension())
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestMockClient_Deterministic(t *testing.T) {
	mock := NewMockClient(16)

	a, err := mock.EmbedSingle(context.Background(), "same text")
	require.NoError(t, err)
	b, err := mock.EmbedSingle(context.Background(), "same text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}
