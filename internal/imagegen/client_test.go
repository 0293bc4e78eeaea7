package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePersonaImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Prompt, "busy parent who values quick setup")

		json.NewEncoder(w).Encode(imageResponse{
			Data: []struct {
				URL string `json:"url"`
			}{{URL: "https://cdn.example.com/p1.png"}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	url, err := client.GeneratePersonaImage(context.Background(), "busy parent who values quick setup")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p1.png", url)
}

func TestGeneratePersonaImageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.GeneratePersonaImage(context.Background(), "anyone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGeneratePersonaImageEmptyDescription(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.GeneratePersonaImage(context.Background(), "")
	assert.Error(t, err)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}
