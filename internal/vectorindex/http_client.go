package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to a Pinecone-compatible vector index over HTTP.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// HTTPConfig holds HTTP index client configuration.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPClient creates a new HTTP index client.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}, nil
}

type upsertRequest struct {
	Namespace string `json:"namespace"`
	Vectors   []Item `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert inserts or replaces vectors in the namespace.
func (c *HTTPClient) Upsert(ctx context.Context, namespace string, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	var resp upsertResponse
	if err := c.post(ctx, "/vectors/upsert", upsertRequest{Namespace: namespace, Vectors: items}, &resp); err != nil {
		return fmt.Errorf("upsert %d vectors: %w", len(items), err)
	}
	return nil
}

type queryRequest struct {
	Namespace       string    `json:"namespace"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Filter          Filter    `json:"filter,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns up to topK matches restricted by the metadata filter.
func (c *HTTPClient) Query(ctx context.Context, namespace string, req QueryRequest) ([]Match, error) {
	body := queryRequest{
		Namespace:       namespace,
		Vector:          req.Vector,
		TopK:            req.TopK,
		Filter:          req.Filter,
		IncludeMetadata: true,
	}

	var resp queryResponse
	if err := c.post(ctx, "/query", body, &resp); err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", namespace, err)
	}
	return resp.Matches, nil
}

type deleteRequest struct {
	Namespace string   `json:"namespace"`
	IDs       []string `json:"ids"`
}

// Delete removes vectors by id from the namespace.
func (c *HTTPClient) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.post(ctx, "/vectors/delete", deleteRequest{Namespace: namespace, IDs: ids}, nil); err != nil {
		return fmt.Errorf("delete %d vectors: %w", len(ids), err)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("index error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

var _ Index = (*HTTPClient)(nil)
