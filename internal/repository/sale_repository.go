package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-engine/internal/model"
	"github.com/fairyhunter13/flash-sale-engine/internal/service"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SaleRepository provides data access for sale metadata using pgx.
// The admission pipeline treats sales as read-mostly; writes happen through
// the administrative operations only.
type SaleRepository struct {
	pool PoolInterface
}

// NewSaleRepository creates a new SaleRepository with the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// NewSaleRepositoryWithPool creates a new SaleRepository with a custom pool interface.
// This is primarily used for testing.
func NewSaleRepositoryWithPool(pool PoolInterface) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// GetByID retrieves a sale by its identifier.
// Returns nil, nil if the sale is not found (service layer handles this).
func (r *SaleRepository) GetByID(ctx context.Context, saleID string) (*model.Sale, error) {
	query := `SELECT id, name, start_time, end_time, total_stock, created_at, updated_at
	          FROM sales WHERE id = $1`

	var sale model.Sale
	err := r.pool.QueryRow(ctx, query, saleID).Scan(
		&sale.ID,
		&sale.Name,
		&sale.StartTime,
		&sale.EndTime,
		&sale.TotalStock,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get sale %s: %w", saleID, err)
	}
	return &sale, nil
}

// Insert inserts a new sale. Sale creation is an administrative/bootstrap
// path; the admission pipeline never calls this.
func (r *SaleRepository) Insert(ctx context.Context, sale *model.Sale) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sales (id, name, start_time, end_time, total_stock) VALUES ($1, $2, $3, $4, $5)`,
		sale.ID, sale.Name, sale.StartTime, sale.EndTime, sale.TotalStock)
	if err != nil {
		return fmt.Errorf("insert sale %s: %w", sale.ID, err)
	}
	return nil
}

// SetTotalStock updates a sale's total stock. Administrative; used by reset.
// Returns service.ErrSaleNotFound when no row matches.
func (r *SaleRepository) SetTotalStock(ctx context.Context, saleID string, n int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sales SET total_stock = $2, updated_at = NOW() WHERE id = $1`,
		saleID, n)
	if err != nil {
		return fmt.Errorf("set total stock for %s: %w", saleID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrSaleNotFound
	}
	return nil
}

// UpdateWindow updates a sale's start and/or end time; nil bounds are left
// unchanged. Returns the updated sale, or service.ErrSaleNotFound.
func (r *SaleRepository) UpdateWindow(ctx context.Context, saleID string, start, end *time.Time) (*model.Sale, error) {
	query := `UPDATE sales
	          SET start_time = COALESCE($2, start_time),
	              end_time   = COALESCE($3, end_time),
	              updated_at = NOW()
	          WHERE id = $1
	          RETURNING id, name, start_time, end_time, total_stock, created_at, updated_at`

	var sale model.Sale
	err := r.pool.QueryRow(ctx, query, saleID, start, end).Scan(
		&sale.ID,
		&sale.Name,
		&sale.StartTime,
		&sale.EndTime,
		&sale.TotalStock,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrSaleNotFound
		}
		return nil, fmt.Errorf("update window for %s: %w", saleID, err)
	}
	return &sale, nil
}
