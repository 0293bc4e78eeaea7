package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ProductRepository handles product CRUD operations.
type ProductRepository struct {
	db DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product.
func (r *ProductRepository) Create(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	query := `
		INSERT INTO products (id, tenant_id, name, version, is_processing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.TenantID, product.Name, product.Version,
		product.IsProcessing, product.CreatedAt, product.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product by ID with tenant scoping. A product owned by
// a different tenant is indistinguishable from a missing one.
func (r *ProductRepository) GetByID(ctx context.Context, tenantID, productID uuid.UUID) (*Product, error) {
	query := `
		SELECT id, tenant_id, name, version, is_processing, created_at, updated_at
		FROM products
		WHERE id = $1 AND tenant_id = $2
	`
	product := &Product{}
	err := r.db.QueryRowContext(ctx, query, productID, tenantID).Scan(
		&product.ID, &product.TenantID, &product.Name, &product.Version,
		&product.IsProcessing, &product.CreatedAt, &product.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return product, err
}

// ListByTenant lists all products for a tenant.
func (r *ProductRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Product, error) {
	query := `
		SELECT id, tenant_id, name, version, is_processing, created_at, updated_at
		FROM products
		WHERE tenant_id = $1
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product := &Product{}
		if err := rows.Scan(
			&product.ID, &product.TenantID, &product.Name, &product.Version,
			&product.IsProcessing, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// SetProcessing updates the processing projection flag.
func (r *ProductRepository) SetProcessing(ctx context.Context, productID uuid.UUID, processing bool) error {
	query := `
		UPDATE products SET is_processing = $1, updated_at = $2 WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, processing, time.Now(), productID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CompetitorRepository handles competitor CRUD operations.
type CompetitorRepository struct {
	db DB
}

// NewCompetitorRepository creates a new competitor repository.
func NewCompetitorRepository(db DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

// Create creates a new competitor.
func (r *CompetitorRepository) Create(ctx context.Context, competitor *Competitor) error {
	if competitor.ID == uuid.Nil {
		competitor.ID = uuid.New()
	}
	competitor.CreatedAt = time.Now()

	query := `
		INSERT INTO competitors (id, product_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		competitor.ID, competitor.ProductID, competitor.Name, competitor.CreatedAt,
	)
	return err
}

// ListByProduct lists all competitors for a product.
func (r *CompetitorRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Competitor, error) {
	query := `
		SELECT id, product_id, name, created_at
		FROM competitors
		WHERE product_id = $1
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var competitors []*Competitor
	for rows.Next() {
		competitor := &Competitor{}
		if err := rows.Scan(
			&competitor.ID, &competitor.ProductID, &competitor.Name, &competitor.CreatedAt,
		); err != nil {
			return nil, err
		}
		competitors = append(competitors, competitor)
	}
	return competitors, rows.Err()
}

// AnalysisRepository handles analysis rows keyed by (product_id, type).
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Upsert inserts or overwrites the analysis row for (product_id, type).
// Retrying a type is idempotent: the second run's status, data, and error
// replace the first's in place.
func (r *AnalysisRepository) Upsert(ctx context.Context, a *Analysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if a.Data == nil {
		a.Data = []byte("{}")
	}

	query := `
		INSERT INTO analyses (id, product_id, type, status, data, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, type) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ProductID, string(a.Type), string(a.Status), []byte(a.Data),
		a.Error, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// GetByProductAndType retrieves one analysis row.
func (r *AnalysisRepository) GetByProductAndType(ctx context.Context, productID uuid.UUID, t analysis.Type) (*Analysis, error) {
	query := `
		SELECT id, product_id, type, status, data, error, created_at, updated_at
		FROM analyses
		WHERE product_id = $1 AND type = $2
	`
	row := r.db.QueryRowContext(ctx, query, productID, string(t))
	return scanAnalysis(row.Scan)
}

// ListByProduct retrieves all analysis rows for a product in catalog order.
func (r *AnalysisRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Analysis, error) {
	query := `
		SELECT id, product_id, type, status, data, error, created_at, updated_at
		FROM analyses
		WHERE product_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byType := make(map[analysis.Type]*Analysis)
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, err
		}
		byType[a.Type] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Catalog order keeps the status surface stable for callers.
	var out []*Analysis
	for _, t := range analysis.Catalog {
		if a, ok := byType[t]; ok {
			out = append(out, a)
			delete(byType, t)
		}
	}
	for _, a := range byType {
		out = append(out, a)
	}
	return out, nil
}

func scanAnalysis(scan func(dest ...interface{}) error) (*Analysis, error) {
	a := &Analysis{}
	var (
		typeStr   string
		statusStr string
		data      []byte
		errText   sql.NullString
	)
	err := scan(&a.ID, &a.ProductID, &typeStr, &statusStr, &data, &errText, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Type = analysis.Type(typeStr)
	a.Status = analysis.Status(statusStr)
	a.Data = data
	if errText.Valid {
		a.Error = &errText.String
	}
	return a, nil
}

// Repositories bundles all repositories together.
type Repositories struct {
	Products    *ProductRepository
	Competitors *CompetitorRepository
	Analyses    *AnalysisRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Products:    NewProductRepository(db),
		Competitors: NewCompetitorRepository(db),
		Analyses:    NewAnalysisRepository(db),
	}
}
