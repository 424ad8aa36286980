package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/flash-sale-engine/internal/model"
	"github.com/fairyhunter13/flash-sale-engine/internal/service"
)

// mockOrderRows implements pgx.Rows for testing ListSuccessUsers.
type mockOrderRows struct {
	data      []string
	index     int
	errOnScan error
	errOnRows error
}

func (m *mockOrderRows) Close() {}

func (m *mockOrderRows) Err() error {
	return m.errOnRows
}

func (m *mockOrderRows) Next() bool {
	if m.index < len(m.data) {
		m.index++
		return true
	}
	return false
}

func (m *mockOrderRows) Scan(dest ...any) error {
	if m.errOnScan != nil {
		return m.errOnScan
	}
	if m.index > 0 && m.index <= len(m.data) {
		*(dest[0].(*string)) = m.data[m.index-1]
	}
	return nil
}

func (m *mockOrderRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockOrderRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockOrderRows) RawValues() [][]byte                          { return nil }
func (m *mockOrderRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockOrderRows) Conn() *pgx.Conn                              { return nil }

// mockOrderPool implements OrderPoolInterface for testing.
type mockOrderPool struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockOrderPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (m *mockOrderPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockOrderPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return &mockOrderRows{}, nil
}

func TestOrderRepository_Insert_Success(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	var capturedSQL string
	var capturedArgs []any
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int64) = 42
				*dest[1].(*time.Time) = createdAt
				return nil
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	order, err := repo.Insert(context.Background(), "sale-1", "user_001", model.OrderSuccess)

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, "user_001", order.UserID)
	assert.Equal(t, "sale-1", order.SaleID)
	assert.Equal(t, model.OrderSuccess, order.Status)
	assert.Equal(t, createdAt, order.CreatedAt)
	assert.Contains(t, capturedSQL, "INSERT INTO orders")
	assert.Equal(t, "user_001", capturedArgs[0])
	assert.Equal(t, "sale-1", capturedArgs[1])
	assert.Equal(t, model.OrderSuccess, capturedArgs[2])
}

func TestOrderRepository_Insert_Duplicate(t *testing.T) {
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				// Simulate PostgreSQL unique violation error (code 23505)
				return &pgconn.PgError{
					Code:    "23505",
					Message: "duplicate key value violates unique constraint",
				}
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	order, err := repo.Insert(context.Background(), "sale-1", "user_001", model.OrderSuccess)

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, service.ErrAlreadyPurchased), "should return ErrAlreadyPurchased for duplicate")
}

func TestOrderRepository_Insert_OtherPgError(t *testing.T) {
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				return &pgconn.PgError{
					Code:    "23503", // foreign_key_violation
					Message: "insert or update on table violates foreign key constraint",
				}
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	_, err := repo.Insert(context.Background(), "ghost-sale", "user_001", model.OrderSuccess)

	require.Error(t, err)
	assert.False(t, errors.Is(err, service.ErrAlreadyPurchased), "should not return ErrAlreadyPurchased for non-23505 error")
	assert.Contains(t, err.Error(), "insert order")
}

func TestOrderRepository_Insert_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection refused")
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				return dbErr
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	_, err := repo.Insert(context.Background(), "sale-1", "user_001", model.OrderSuccess)

	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr), "should wrap original error")
}

func TestOrderRepository_CountSuccess(t *testing.T) {
	var capturedArgs []any
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedArgs = args
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int) = 73
				return nil
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	count, err := repo.CountSuccess(context.Background(), "sale-1")

	require.NoError(t, err)
	assert.Equal(t, 73, count)
	assert.Equal(t, "sale-1", capturedArgs[0])
	assert.Equal(t, model.OrderSuccess, capturedArgs[1])
}

func TestOrderRepository_CountByStatus(t *testing.T) {
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int) = 95
				*dest[1].(*int) = 3
				return nil
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	success, failed, err := repo.CountByStatus(context.Background(), "sale-1")

	require.NoError(t, err)
	assert.Equal(t, 95, success)
	assert.Equal(t, 3, failed)
}

func TestOrderRepository_ListSuccessUsers_Success(t *testing.T) {
	mock := &mockOrderPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockOrderRows{
				data: []string{"user_001", "user_002", "user_003"},
			}, nil
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	users, err := repo.ListSuccessUsers(context.Background(), "sale-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"user_001", "user_002", "user_003"}, users)
}

func TestOrderRepository_ListSuccessUsers_Empty(t *testing.T) {
	mock := &mockOrderPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockOrderRows{data: []string{}}, nil
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	users, err := repo.ListSuccessUsers(context.Background(), "sale-1")

	require.NoError(t, err)
	require.NotNil(t, users, "Should return empty slice, not nil")
	assert.Len(t, users, 0)
}

func TestOrderRepository_ListSuccessUsers_QueryError(t *testing.T) {
	dbErr := errors.New("database connection failed")
	mock := &mockOrderPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, dbErr
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	users, err := repo.ListSuccessUsers(context.Background(), "sale-1")

	require.Error(t, err)
	assert.Nil(t, users)
	assert.True(t, errors.Is(err, dbErr))
}

func TestOrderRepository_ListSuccessUsers_RowsError(t *testing.T) {
	rowsErr := errors.New("rows iteration error")
	mock := &mockOrderPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockOrderRows{data: []string{}, errOnRows: rowsErr}, nil
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	users, err := repo.ListSuccessUsers(context.Background(), "sale-1")

	require.Error(t, err)
	assert.Nil(t, users)
	assert.Contains(t, err.Error(), "iterate order rows")
}

func TestOrderRepository_GetSuccessByUser_Found(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int64) = 7
				*dest[1].(*string) = "user_001"
				*dest[2].(*string) = "sale-1"
				*dest[3].(*string) = model.OrderSuccess
				*dest[4].(*time.Time) = createdAt
				return nil
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	order, err := repo.GetSuccessByUser(context.Background(), "sale-1", "user_001")

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, model.OrderSuccess, order.Status)
}

func TestOrderRepository_GetSuccessByUser_NotFound(t *testing.T) {
	mock := &mockOrderPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	order, err := repo.GetSuccessByUser(context.Background(), "sale-1", "user_001")

	require.NoError(t, err, "no committed order is not an error at the repository layer")
	assert.Nil(t, order)
}

func TestOrderRepository_DeleteBySale(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	mock := &mockOrderPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("DELETE 12"), nil
		},
	}

	repo := NewOrderRepositoryWithPool(mock)
	err := repo.DeleteBySale(context.Background(), "sale-1")

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "DELETE FROM orders")
	assert.Equal(t, "sale-1", capturedArgs[0])
}
