package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/cmd/insight-api/middleware"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/storage"
)

// ProductHandler handles product CRUD requests.
type ProductHandler struct {
	logger *observability.Logger
	repos  *storage.Repositories
}

// NewProductHandler creates a product handler.
func NewProductHandler(logger *observability.Logger, repos *storage.Repositories) *ProductHandler {
	return &ProductHandler{logger: logger, repos: repos}
}

// CreateProductDTO is the request body for product creation.
type CreateProductDTO struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
}

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Version      string          `json:"version,omitempty"`
	IsProcessing bool            `json:"isProcessing"`
	Competitors  []CompetitorDTO `json:"competitors"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// CompetitorDTO is the API shape of a competitor.
type CompetitorDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Create registers a product with its competitors for the tenant.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var dto CreateProductDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	product := &storage.Product{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     dto.Name,
		Version:  dto.Version,
	}
	if err := h.repos.Products.Create(r.Context(), product); err != nil {
		h.logger.Error().Err(err).Msg("failed to create product")
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	competitors := make([]CompetitorDTO, 0, len(dto.Competitors))
	for _, name := range dto.Competitors {
		if name == "" {
			continue
		}
		c := &storage.Competitor{ID: uuid.New(), ProductID: product.ID, Name: name}
		if err := h.repos.Competitors.Create(r.Context(), c); err != nil {
			h.logger.Error().Err(err).Str("competitor", name).Msg("failed to create competitor")
			writeError(w, http.StatusInternalServerError, "failed to create competitor")
			return
		}
		competitors = append(competitors, CompetitorDTO{ID: c.ID.String(), Name: c.Name})
	}

	writeJSON(w, http.StatusCreated, ProductDTO{
		ID:          product.ID.String(),
		Name:        product.Name,
		Version:     product.Version,
		Competitors: competitors,
		CreatedAt:   product.CreatedAt,
	})
}

// List returns all products for the tenant.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	products, err := h.repos.Products.ListByTenant(r.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list products")
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dto, err := h.productDTO(r, p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list products")
			return
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns one product with its competitors.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.repos.Products.GetByID(r.Context(), tenantID, productID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto, err := h.productDTO(r, product)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *ProductHandler) productDTO(r *http.Request, p *storage.Product) (ProductDTO, error) {
	competitors, err := h.repos.Competitors.ListByProduct(r.Context(), p.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to list competitors")
		return ProductDTO{}, err
	}
	dtos := make([]CompetitorDTO, 0, len(competitors))
	for _, c := range competitors {
		dtos = append(dtos, CompetitorDTO{ID: c.ID.String(), Name: c.Name})
	}
	return ProductDTO{
		ID:           p.ID.String(),
		Name:         p.Name,
		Version:      p.Version,
		IsProcessing: p.IsProcessing,
		Competitors:  dtos,
		CreatedAt:    p.CreatedAt,
	}, nil
}
