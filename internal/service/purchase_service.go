package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-engine/internal/metrics"
	"github.com/fairyhunter13/flash-sale-engine/internal/model"
)

// SaleRepositoryInterface defines the interface for sale metadata access.
type SaleRepositoryInterface interface {
	GetByID(ctx context.Context, saleID string) (*model.Sale, error)
	SetTotalStock(ctx context.Context, saleID string, n int) error
	UpdateWindow(ctx context.Context, saleID string, start, end *time.Time) (*model.Sale, error)
}

// OrderRepositoryInterface defines the interface for the durable order log.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, saleID, userID, status string) (*model.Order, error)
	CountSuccess(ctx context.Context, saleID string) (int, error)
	CountByStatus(ctx context.Context, saleID string) (success, failed int, err error)
	ListSuccessUsers(ctx context.Context, saleID string) ([]string, error)
	GetSuccessByUser(ctx context.Context, saleID, userID string) (*model.Order, error)
	DeleteBySale(ctx context.Context, saleID string) error
}

// CoordinatorInterface defines the interface for the fast coordinator.
type CoordinatorInterface interface {
	SetStock(ctx context.Context, saleID string, n int64) error
	GetStock(ctx context.Context, saleID string) (int64, bool, error)
	DecrStock(ctx context.Context, saleID string) (int64, error)
	IncrStock(ctx context.Context, saleID string) (int64, error)
	HasMark(ctx context.Context, saleID, userID string) (bool, error)
	SetMark(ctx context.Context, saleID, userID string) error
	ClearMark(ctx context.Context, saleID, userID string) error
	Reset(ctx context.Context, saleID string) error
}

// PurchaseResult carries the outcome of an accepted purchase.
type PurchaseResult struct {
	Order          *model.Order
	RemainingStock int64
}

// PurchaseService implements the purchase admission pipeline against the fast
// coordinator and the durable order log. It is stateless: workers share only
// the injected external dependencies, and all mutual exclusion lives in the
// coordinator's atomic counter and the order table's unique constraint.
type PurchaseService struct {
	sales         SaleRepositoryInterface
	orders        OrderRepositoryInterface
	fc            CoordinatorInterface
	defaultSaleID string
	now           func() time.Time
}

// NewPurchaseService creates a PurchaseService with the given repositories,
// coordinator, and the sale served when a request does not name one.
func NewPurchaseService(sales SaleRepositoryInterface, orders OrderRepositoryInterface, fc CoordinatorInterface, defaultSaleID string) *PurchaseService {
	return &PurchaseService{
		sales:         sales,
		orders:        orders,
		fc:            fc,
		defaultSaleID: defaultSaleID,
		now:           time.Now,
	}
}

// NewPurchaseServiceWithClock creates a PurchaseService with a custom clock.
// Primarily used for testing window boundaries.
func NewPurchaseServiceWithClock(sales SaleRepositoryInterface, orders OrderRepositoryInterface, fc CoordinatorInterface, defaultSaleID string, now func() time.Time) *PurchaseService {
	return &PurchaseService{
		sales:         sales,
		orders:        orders,
		fc:            fc,
		defaultSaleID: defaultSaleID,
		now:           now,
	}
}

func (s *PurchaseService) resolveSaleID(saleID string) string {
	if saleID == "" {
		return s.defaultSaleID
	}
	return saleID
}

// Purchase attempts to buy one unit of the sale for the given user.
// Returns:
//   - ErrSaleNotFound if the sale doesn't exist
//   - ErrSaleUpcoming / ErrSaleEnded outside the sale window
//   - ErrAlreadyPurchased if the user already holds a committed order
//   - ErrSoldOut when the counter is exhausted
//   - ErrCoordinatorUnavailable when the atomic decrement cannot be performed
//
// Acceptance gates strictly on the decremented counter being >= 0; every
// rejection after the decrement compensates with an increment so the counter
// returns to its prior value.
func (s *PurchaseService) Purchase(ctx context.Context, userID, saleID string) (*PurchaseResult, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	saleID = s.resolveSaleID(saleID)

	// 1. Sale lookup and window check.
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	switch sale.StatusAt(s.now()) {
	case model.SaleUpcoming:
		return nil, ErrSaleUpcoming
	case model.SaleEnded:
		return nil, ErrSaleEnded
	}

	// 2. Fast user-mark check. The mark is advisory; when the coordinator is
	// unreachable we fall through to the order log, which is the truth.
	marked, err := s.fc.HasMark(ctx, saleID, userID)
	if err != nil {
		log.Warn().Err(err).Str("sale_id", saleID).Str("user_id", userID).
			Msg("mark check failed, falling back to order log")
		order, dbErr := s.orders.GetSuccessByUser(ctx, saleID, userID)
		if dbErr != nil {
			return nil, fmt.Errorf("fallback purchase check: %w", dbErr)
		}
		if order != nil {
			return nil, ErrAlreadyPurchased
		}
	} else if marked {
		return nil, ErrAlreadyPurchased
	}

	// 3. Atomic decrement. Without the coordinator's atomic guarantee the
	// purchase must not proceed; no state has changed yet, so nothing to
	// compensate.
	remaining, err := s.fc.DecrStock(ctx, saleID)
	if err != nil {
		log.Error().Err(err).Str("sale_id", saleID).Msg("stock decrement failed")
		return nil, ErrCoordinatorUnavailable
	}

	// The unit is debited. The rest of the protocol must run to completion
	// even if the caller disconnects: leaving the counter debited without
	// resolution would silently shrink the effective stock.
	ctx = context.WithoutCancel(ctx)

	// 4. Oversell guard. Acceptance requires remaining >= 0; the transient
	// negative value is visible to no accepted purchase.
	if remaining < 0 {
		metrics.ObserveCompensation()
		if _, incErr := s.fc.IncrStock(ctx, saleID); incErr != nil {
			log.Error().Err(incErr).Str("sale_id", saleID).
				Msg("compensating increment failed after sold-out rejection")
		}
		return nil, ErrSoldOut
	}

	// 5. Mark before insert: a concurrent request from the same user now takes
	// the fast rejection at step 2 instead of double-decrementing. Failure
	// here is tolerable - the unique constraint still protects correctness.
	markWritten := true
	if err := s.fc.SetMark(ctx, saleID, userID); err != nil {
		markWritten = false
		log.Warn().Err(err).Str("sale_id", saleID).Str("user_id", userID).
			Msg("mark write failed, relying on unique constraint")
	}

	// 6. Durable insert.
	order, err := s.orders.Insert(ctx, saleID, userID, model.OrderSuccess)
	if err != nil {
		if errors.Is(err, ErrAlreadyPurchased) {
			// A concurrent request from this user committed first. Restore the
			// unit we provisionally consumed. The mark stays: it is truthful,
			// and the winning request owns it.
			metrics.ObserveCompensation()
			if _, incErr := s.fc.IncrStock(ctx, saleID); incErr != nil {
				log.Error().Err(incErr).Str("sale_id", saleID).Str("user_id", userID).
					Msg("compensating increment failed after duplicate order")
			}
			return nil, ErrAlreadyPurchased
		}

		// Full compensation: give back the unit and clear the mark so the
		// user can retry.
		metrics.ObserveCompensation()
		if _, incErr := s.fc.IncrStock(ctx, saleID); incErr != nil {
			log.Error().Err(incErr).Str("sale_id", saleID).Str("user_id", userID).
				Msg("compensating increment failed after insert failure")
		}
		if markWritten {
			if clrErr := s.fc.ClearMark(ctx, saleID, userID); clrErr != nil {
				log.Error().Err(clrErr).Str("sale_id", saleID).Str("user_id", userID).
					Msg("compensating mark clear failed after insert failure")
			}
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return &PurchaseResult{Order: order, RemainingStock: remaining}, nil
}

// GetUserPurchase reports whether the user holds a committed order for the
// sale, reading the order log directly.
func (s *PurchaseService) GetUserPurchase(ctx context.Context, userID, saleID string) (*model.UserPurchaseResponse, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	saleID = s.resolveSaleID(saleID)

	order, err := s.orders.GetSuccessByUser(ctx, saleID, userID)
	if err != nil {
		return nil, fmt.Errorf("get user purchase: %w", err)
	}
	return &model.UserPurchaseResponse{
		Purchased: order != nil,
		Order:     order,
	}, nil
}
