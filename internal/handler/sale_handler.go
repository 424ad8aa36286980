package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-engine/internal/model"
	"github.com/fairyhunter13/flash-sale-engine/internal/service"
)

// SaleServiceInterface defines the interface for sale status and admin logic.
type SaleServiceInterface interface {
	GetSaleStatus(ctx context.Context, saleID string) (*model.SaleStatusResponse, error)
	GetStats(ctx context.Context, saleID string) (*model.StatsResponse, error)
	Reset(ctx context.Context, saleID string, stock int) error
	UpdateWindow(ctx context.Context, saleID string, start, end *time.Time) (*model.Sale, error)
	InitStock(ctx context.Context, saleID string) (int64, error)
	RecoverUserMarks(ctx context.Context, saleID string) (int, error)
}

// SaleHandler handles HTTP requests for sale status and admin operations.
type SaleHandler struct {
	service   SaleServiceInterface
	validator *validator.Validate
}

// NewSaleHandler creates a new SaleHandler with the given service and validator.
func NewSaleHandler(svc SaleServiceInterface, v *validator.Validate) *SaleHandler {
	return &SaleHandler{service: svc, validator: v}
}

// saleErrorResponse maps service errors common to the sale endpoints.
func saleErrorResponse(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, service.ErrSaleNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sale not found"})
	}
	if errors.Is(err, service.ErrInvalidRequest) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	log.Error().Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// GetStatus handles GET /api/sale/status requests. An optional sale_id query
// parameter selects the sale.
func (h *SaleHandler) GetStatus(c *fiber.Ctx) error {
	resp, err := h.service.GetSaleStatus(c.Context(), c.Query("sale_id"))
	if err != nil {
		return saleErrorResponse(c, err, "failed to get sale status")
	}
	return c.JSON(resp)
}

// GetStats handles GET /api/sale/stats requests.
func (h *SaleHandler) GetStats(c *fiber.Ctx) error {
	resp, err := h.service.GetStats(c.Context(), c.Query("sale_id"))
	if err != nil {
		return saleErrorResponse(c, err, "failed to get sale stats")
	}
	return c.JSON(resp)
}

// Reset handles POST /api/admin/reset requests. It wipes the sale's orders,
// rewrites total stock, and re-seeds the coordinator.
func (h *SaleHandler) Reset(c *fiber.Ctx) error {
	var req model.ResetRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: stock is required and must be >= 0"})
	}

	if err := h.service.Reset(c.Context(), req.SaleID, *req.Stock); err != nil {
		return saleErrorResponse(c, err, "failed to reset sale")
	}

	return c.JSON(fiber.Map{
		"message": "sale reset",
		"stock":   *req.Stock,
	})
}

// UpdateWindow handles POST /api/admin/sale/window requests to move the sale
// window. Omitted bounds are left unchanged.
func (h *SaleHandler) UpdateWindow(c *fiber.Ctx) error {
	var req model.UpdateWindowRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: sale_id is required"})
	}

	sale, err := h.service.UpdateWindow(c.Context(), req.SaleID, req.StartTime, req.EndTime)
	if err != nil {
		return saleErrorResponse(c, err, "failed to update sale window")
	}

	return c.JSON(sale)
}

// InitStock handles POST /api/admin/stock/init requests. It recomputes the
// coordinator counter from the order log. Operator use only; running it during
// live traffic can transiently over-admit.
func (h *SaleHandler) InitStock(c *fiber.Ctx) error {
	var req model.AdminSaleRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	remaining, err := h.service.InitStock(c.Context(), req.SaleID)
	if err != nil {
		return saleErrorResponse(c, err, "failed to init stock")
	}

	return c.JSON(fiber.Map{
		"message":         "stock initialized",
		"remaining_stock": remaining,
	})
}

// RecoverMarks handles POST /api/admin/marks/recover requests. It rebuilds the
// coordinator's user marks from committed orders after a coordinator failover.
func (h *SaleHandler) RecoverMarks(c *fiber.Ctx) error {
	var req model.AdminSaleRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	restored, err := h.service.RecoverUserMarks(c.Context(), req.SaleID)
	if err != nil {
		return saleErrorResponse(c, err, "failed to recover user marks")
	}

	return c.JSON(fiber.Map{
		"message":  "user marks recovered",
		"restored": restored,
	})
}
