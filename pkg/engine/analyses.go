package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Product mirrors the API's product shape.
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Version      string       `json:"version,omitempty"`
	IsProcessing bool         `json:"isProcessing"`
	Competitors  []Competitor `json:"competitors"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Competitor is a named competitor of a product.
type Competitor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateProductRequest registers a product and its competitors.
type CreateProductRequest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
}

// CreateProduct registers a product for the client's tenant.
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/api/v1/products", req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns the tenant's products.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product with its competitors.
func (c *Client) GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+productID.String(), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Step is one catalog step outcome.
type Step struct {
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// RunSummary is the outcome of a full catalog run.
type RunSummary struct {
	Success   bool     `json:"success"`
	Completed []string `json:"completedTypes"`
	Steps     []Step   `json:"steps"`
	Errors    []string `json:"errors,omitempty"`
}

// RunAnalyses runs the full analysis catalog for a product. The call blocks
// until the run finishes; size the client timeout accordingly.
func (c *Client) RunAnalyses(ctx context.Context, productID uuid.UUID) (*RunSummary, error) {
	var summary RunSummary
	path := fmt.Sprintf("/api/v1/products/%s/analyses/run", productID)
	if err := c.do(ctx, http.MethodPost, path, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RunAnalysis retries a single analysis type.
func (c *Client) RunAnalysis(ctx context.Context, productID uuid.UUID, analysisType string) (*Step, error) {
	var step Step
	path := fmt.Sprintf("/api/v1/products/%s/analyses/%s/run", productID, analysisType)
	if err := c.do(ctx, http.MethodPost, path, nil, &step); err != nil {
		return nil, err
	}
	return &step, nil
}

// AnalysisStatus is one row of the status surface.
type AnalysisStatus struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusReport is the run progress projection for a product.
type StatusReport struct {
	IsProcessing       bool             `json:"isProcessing"`
	CompletedTypes     []string         `json:"completedTypes"`
	FailedTypes        []string         `json:"failedTypes"`
	TotalExpectedTypes int              `json:"totalExpectedTypes"`
	Analyses           []AnalysisStatus `json:"analyses"`
}

// GetStatus reports analysis progress for a product.
func (c *Client) GetStatus(ctx context.Context, productID uuid.UUID) (*StatusReport, error) {
	var report StatusReport
	path := fmt.Sprintf("/api/v1/products/%s/analyses/status", productID)
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Analysis is a persisted analysis result including its payload.
type Analysis struct {
	Type   string          `json:"type"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *string         `json:"error,omitempty"`
}

// GetAnalysis returns one persisted analysis result.
func (c *Client) GetAnalysis(ctx context.Context, productID uuid.UUID, analysisType string) (*Analysis, error) {
	var out Analysis
	path := fmt.Sprintf("/api/v1/products/%s/analyses/%s", productID, analysisType)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
