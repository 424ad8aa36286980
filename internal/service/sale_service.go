package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-engine/internal/model"
)

// GetSaleStatus returns the sale window state and live remaining stock.
// Remaining stock comes from the coordinator; when the coordinator has no
// counter or is unreachable, it falls back to total_stock minus committed
// SUCCESS orders, lower-bounded at zero.
func (s *PurchaseService) GetSaleStatus(ctx context.Context, saleID string) (*model.SaleStatusResponse, error) {
	saleID = s.resolveSaleID(saleID)

	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}

	remaining, found, err := s.fc.GetStock(ctx, saleID)
	if err != nil || !found {
		if err != nil {
			log.Warn().Err(err).Str("sale_id", saleID).
				Msg("coordinator stock read failed, falling back to order log")
		}
		sold, countErr := s.orders.CountSuccess(ctx, saleID)
		if countErr != nil {
			return nil, fmt.Errorf("count success orders: %w", countErr)
		}
		remaining = int64(sale.TotalStock - sold)
		if remaining < 0 {
			remaining = 0
		}
	}

	return &model.SaleStatusResponse{
		SaleID:         sale.ID,
		Name:           sale.Name,
		Status:         sale.StatusAt(s.now()),
		RemainingStock: remaining,
		TotalStock:     sale.TotalStock,
		StartTime:      sale.StartTime,
		EndTime:        sale.EndTime,
	}, nil
}

// GetStats returns the sale status together with order counts by status.
func (s *PurchaseService) GetStats(ctx context.Context, saleID string) (*model.StatsResponse, error) {
	saleID = s.resolveSaleID(saleID)

	status, err := s.GetSaleStatus(ctx, saleID)
	if err != nil {
		return nil, err
	}

	success, failed, err := s.orders.CountByStatus(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	return &model.StatsResponse{
		Sale: status,
		Purchases: model.PurchaseCounts{
			SuccessCount: success,
			FailedCount:  failed,
			TotalCount:   success + failed,
		},
	}, nil
}

// Reset restores a sale to a clean state with the given stock: total_stock is
// rewritten, all orders are deleted, and the coordinator is wiped and
// re-seeded. Administrative; for tests and controlled relaunches only.
func (s *PurchaseService) Reset(ctx context.Context, saleID string, stock int) (retErr error) {
	if stock < 0 {
		return ErrInvalidRequest
	}
	saleID = s.resolveSaleID(saleID)

	if err := s.sales.SetTotalStock(ctx, saleID, stock); err != nil {
		return fmt.Errorf("set total stock: %w", err)
	}
	if err := s.orders.DeleteBySale(ctx, saleID); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	if err := s.fc.Reset(ctx, saleID); err != nil {
		return fmt.Errorf("reset coordinator: %w", err)
	}
	if err := s.fc.SetStock(ctx, saleID, int64(stock)); err != nil {
		return fmt.Errorf("seed stock: %w", err)
	}

	log.Info().Str("sale_id", saleID).Int("stock", stock).Msg("sale reset")
	return nil
}

// UpdateWindow changes the sale window. Nil bounds are left unchanged.
func (s *PurchaseService) UpdateWindow(ctx context.Context, saleID string, start, end *time.Time) (*model.Sale, error) {
	if saleID == "" {
		return nil, ErrInvalidRequest
	}
	sale, err := s.sales.UpdateWindow(ctx, saleID, start, end)
	if err != nil {
		return nil, err
	}
	log.Info().Str("sale_id", saleID).
		Time("start_time", sale.StartTime).Time("end_time", sale.EndTime).
		Msg("sale window updated")
	return sale, nil
}

// InitStock recomputes the remaining stock from the order log and overwrites
// the coordinator counter. Safe when no purchases are in flight; invoking it
// during live traffic can cause transient over-acceptance, so it is exposed
// to operators only.
func (s *PurchaseService) InitStock(ctx context.Context, saleID string) (int64, error) {
	saleID = s.resolveSaleID(saleID)

	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return 0, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return 0, ErrSaleNotFound
	}

	sold, err := s.orders.CountSuccess(ctx, saleID)
	if err != nil {
		return 0, fmt.Errorf("count success orders: %w", err)
	}

	remaining := int64(sale.TotalStock - sold)
	if remaining < 0 {
		remaining = 0
	}
	if err := s.fc.SetStock(ctx, saleID, remaining); err != nil {
		return 0, fmt.Errorf("seed stock: %w", err)
	}

	log.Info().Str("sale_id", saleID).Int64("stock", remaining).Msg("stock initialized from order log")
	return remaining, nil
}

// RecoverUserMarks rebuilds the coordinator's user marks from committed
// SUCCESS orders. Idempotent; used after coordinator failover.
func (s *PurchaseService) RecoverUserMarks(ctx context.Context, saleID string) (int, error) {
	saleID = s.resolveSaleID(saleID)

	users, err := s.orders.ListSuccessUsers(ctx, saleID)
	if err != nil {
		return 0, fmt.Errorf("list success users: %w", err)
	}

	for _, userID := range users {
		if err := s.fc.SetMark(ctx, saleID, userID); err != nil {
			return 0, fmt.Errorf("restore mark for %s: %w", userID, err)
		}
	}

	log.Info().Str("sale_id", saleID).Int("restored", len(users)).Msg("user marks recovered")
	return len(users), nil
}

// Bootstrap seeds the coordinator counter for the default sale at startup.
// A missing sale is logged and tolerated: reads will report SALE_NOT_FOUND
// until an operator creates it.
func (s *PurchaseService) Bootstrap(ctx context.Context) error {
	sale, err := s.sales.GetByID(ctx, s.defaultSaleID)
	if err != nil {
		return fmt.Errorf("bootstrap sale lookup: %w", err)
	}
	if sale == nil {
		log.Warn().Str("sale_id", s.defaultSaleID).Msg("default sale not found, skipping stock bootstrap")
		return nil
	}

	if _, err := s.InitStock(ctx, s.defaultSaleID); err != nil {
		return fmt.Errorf("bootstrap stock: %w", err)
	}
	return nil
}
