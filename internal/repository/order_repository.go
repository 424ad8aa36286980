package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-engine/internal/model"
	"github.com/fairyhunter13/flash-sale-engine/internal/service"
)

// OrderPoolInterface defines the database operations needed by OrderRepository.
type OrderPoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OrderRepository provides data access for the durable order log using pgx.
// Orders are append-only; the UNIQUE(user_id, sale_id) constraint is the
// ultimate enforcer of one-per-customer.
type OrderRepository struct {
	pool OrderPoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom pool interface.
// This is primarily used for testing.
func NewOrderRepositoryWithPool(pool OrderPoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert appends an order row and returns it with its assigned id.
// Returns service.ErrAlreadyPurchased if a row with the same (user_id,
// sale_id) already exists; this is the rollback signal the admission pipeline
// compensates on.
func (r *OrderRepository) Insert(ctx context.Context, saleID, userID, status string) (*model.Order, error) {
	query := `INSERT INTO orders (user_id, sale_id, status) VALUES ($1, $2, $3)
	          RETURNING id, created_at`

	order := model.Order{UserID: userID, SaleID: saleID, Status: status}
	err := r.pool.QueryRow(ctx, query, userID, saleID, status).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, service.ErrAlreadyPurchased
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &order, nil
}

// CountSuccess counts committed SUCCESS orders for a sale.
// Used by reconciliation to recompute the live counter.
func (r *OrderRepository) CountSuccess(ctx context.Context, saleID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE sale_id = $1 AND status = $2`,
		saleID, model.OrderSuccess).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count success orders for %s: %w", saleID, err)
	}
	return count, nil
}

// CountByStatus returns the number of SUCCESS and FAILED orders for a sale.
func (r *OrderRepository) CountByStatus(ctx context.Context, saleID string) (success, failed int, err error) {
	query := `SELECT
	            COUNT(*) FILTER (WHERE status = $2),
	            COUNT(*) FILTER (WHERE status = $3)
	          FROM orders WHERE sale_id = $1`

	err = r.pool.QueryRow(ctx, query, saleID, model.OrderSuccess, model.OrderFailed).Scan(&success, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("count orders by status for %s: %w", saleID, err)
	}
	return success, failed, nil
}

// ListSuccessUsers retrieves the user ids of all SUCCESS orders for a sale.
// On success, returns an empty slice (not nil) when no orders exist.
// Used by user-mark recovery after coordinator failover.
func (r *OrderRepository) ListSuccessUsers(ctx context.Context, saleID string) ([]string, error) {
	query := `SELECT user_id FROM orders WHERE sale_id = $1 AND status = $2 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, saleID, model.OrderSuccess)
	if err != nil {
		return nil, fmt.Errorf("list success users for %s: %w", saleID, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan order user_id: %w", err)
		}
		users = append(users, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	// Return empty slice, not nil
	if users == nil {
		users = []string{}
	}

	return users, nil
}

// GetSuccessByUser retrieves the committed SUCCESS order for (sale, user).
// Returns nil, nil when the user has no committed order.
func (r *OrderRepository) GetSuccessByUser(ctx context.Context, saleID, userID string) (*model.Order, error) {
	query := `SELECT id, user_id, sale_id, status, created_at
	          FROM orders WHERE sale_id = $1 AND user_id = $2 AND status = $3`

	var order model.Order
	err := r.pool.QueryRow(ctx, query, saleID, userID, model.OrderSuccess).Scan(
		&order.ID,
		&order.UserID,
		&order.SaleID,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No committed order - let service handle
		}
		return nil, fmt.Errorf("get order for %s/%s: %w", saleID, userID, err)
	}
	return &order, nil
}

// DeleteBySale removes every order for a sale. Administrative; used by reset
// for tests and controlled relaunches only.
func (r *OrderRepository) DeleteBySale(ctx context.Context, saleID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE sale_id = $1`, saleID)
	if err != nil {
		return fmt.Errorf("delete orders for %s: %w", saleID, err)
	}
	return nil
}
