package model

import "time"

// Order statuses as persisted in the orders table.
const (
	OrderSuccess = "SUCCESS"
	OrderFailed  = "FAILED"
)

// Order represents a committed purchase. Orders are append-only: they are
// created by the admission pipeline and never mutated afterwards. At most one
// SUCCESS row exists per (user_id, sale_id); the database unique constraint is
// the enforcer.
type Order struct {
	ID        int64     `json:"order_id"`
	UserID    string    `json:"user_id"`
	SaleID    string    `json:"sale_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Purchase result codes returned by the admission pipeline.
const (
	ResultSuccess          = "SUCCESS"
	ResultAlreadyPurchased = "ALREADY_PURCHASED"
	ResultSoldOut          = "SOLD_OUT"
	ResultSaleNotActive    = "SALE_NOT_ACTIVE"
	ResultSaleNotFound     = "SALE_NOT_FOUND"
	ResultError            = "ERROR"
)

// PurchaseRequest is the DTO for POST /api/purchase.
// SaleID is optional; the server falls back to the configured default sale.
type PurchaseRequest struct {
	UserID string `json:"user_id" validate:"required,max=255,userid"`
	SaleID string `json:"sale_id" validate:"omitempty,max=255"`
}

// PurchaseResponse is the DTO returned for every purchase attempt.
// Order and RemainingStock are only present on SUCCESS; SaleStatus is only
// present on SALE_NOT_ACTIVE.
type PurchaseResponse struct {
	Result         string     `json:"result"`
	Message        string     `json:"message"`
	Order          *Order     `json:"order,omitempty"`
	RemainingStock *int64     `json:"remaining_stock,omitempty"`
	SaleStatus     SaleStatus `json:"sale_status,omitempty"`
}

// UserPurchaseResponse is the DTO for GET /api/purchases/:user_id.
type UserPurchaseResponse struct {
	Purchased bool   `json:"purchased"`
	Order     *Order `json:"order,omitempty"`
}

// PurchaseCounts aggregates order rows by status for the stats endpoint.
type PurchaseCounts struct {
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
	TotalCount   int `json:"total_count"`
}

// StatsResponse is the DTO for GET /api/sale/stats.
type StatsResponse struct {
	Sale      *SaleStatusResponse `json:"sale"`
	Purchases PurchaseCounts      `json:"purchases"`
}

// ResetRequest is the DTO for POST /api/admin/reset.
type ResetRequest struct {
	SaleID string `json:"sale_id" validate:"omitempty,max=255"`
	Stock  *int   `json:"stock" validate:"required,gte=0"`
}

// UpdateWindowRequest is the DTO for POST /api/admin/sale/window.
// Omitted bounds are left unchanged.
type UpdateWindowRequest struct {
	SaleID    string     `json:"sale_id" validate:"required,max=255"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// AdminSaleRequest is the DTO for admin operations that only name a sale.
type AdminSaleRequest struct {
	SaleID string `json:"sale_id" validate:"omitempty,max=255"`
}
