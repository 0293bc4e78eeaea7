package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

func TestClient_Execute_DecodesTypedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "great blender")

		resp := chatResponse{Model: req.Model, Usage: Usage{TotalTokens: 42}}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{
			Role:    "assistant",
			Content: `{"strengths":["durable"],"weaknesses":["loud"]}`,
		}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	result, err := client.Execute(context.Background(), Request{
		Type:    analysis.TypeSWOT,
		Reviews: []analysis.Review{{Text: "great blender", Rating: 5}},
	})
	require.NoError(t, err)

	swot, ok := result.Payload.(analysis.SWOTResult)
	require.True(t, ok)
	assert.Equal(t, []string{"durable"}, swot.Strengths)
	assert.Equal(t, 42, result.Usage.TotalTokens)
}

func TestClient_Execute_RejectsEmptyReviews(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test"})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), Request{Type: analysis.TypeSWOT})
	assert.Error(t, err)
}

func TestClient_Execute_SchemaMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Content: `"just a string"`}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), Request{
		Type:    analysis.TypeSWOT,
		Reviews: []analysis.Review{{Text: "x", Rating: 3}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestExtractJSON_StripsFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in))
	}
}

func TestBuildUserMessage_IncludesExtrasAndDates(t *testing.T) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	msg := buildUserMessage(Request{
		Type:        analysis.TypeSmartCompetition,
		ProductName: "BlendMax",
		Reviews:     []analysis.Review{{Text: "good", Rating: 4, Date: &date}},
		Extras:      map[string]any{"competitors": []string{"MixRival"}},
	})

	assert.Contains(t, msg, "Product: BlendMax")
	assert.Contains(t, msg, "MixRival")
	assert.Contains(t, msg, "2025-03-15")
}

func TestSystemInstruction_CoversCatalog(t *testing.T) {
	for _, typ := range analysis.Catalog {
		inst := systemInstruction(typ)
		assert.Contains(t, inst, "JSON", "type %s needs a schema-pinning instruction", typ)
		assert.NotEqual(t, baseInstruction, inst, "type %s is missing a dedicated instruction", typ)
	}
}

func TestMockExecutor_FailOnceThenSucceed(t *testing.T) {
	mock := NewMockExecutor()
	mock.FailOnce(analysis.TypeSWOT, assert.AnError)

	_, err := mock.Execute(context.Background(), Request{Type: analysis.TypeSWOT})
	assert.Error(t, err)

	result, err := mock.Execute(context.Background(), Request{Type: analysis.TypeSWOT})
	require.NoError(t, err)
	assert.Equal(t, analysis.TypeSWOT, result.Payload.AnalysisType())
}
