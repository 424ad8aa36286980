package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-engine/internal/metrics"
	"github.com/fairyhunter13/flash-sale-engine/internal/model"
	"github.com/fairyhunter13/flash-sale-engine/internal/service"
)

// PurchaseServiceInterface defines the interface for purchase business logic.
type PurchaseServiceInterface interface {
	Purchase(ctx context.Context, userID, saleID string) (*service.PurchaseResult, error)
	GetUserPurchase(ctx context.Context, userID, saleID string) (*model.UserPurchaseResponse, error)
}

// PurchaseHandler handles HTTP requests for purchase operations.
type PurchaseHandler struct {
	service   PurchaseServiceInterface
	validator *validator.Validate
}

// NewPurchaseHandler creates a new PurchaseHandler with the given service and validator.
func NewPurchaseHandler(svc PurchaseServiceInterface, v *validator.Validate) *PurchaseHandler {
	return &PurchaseHandler{service: svc, validator: v}
}

// formatPurchaseValidationError converts validator errors to response messages.
func formatPurchaseValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "UserID":
				if tag == "required" {
					return "invalid request: user_id is required"
				}
				if tag == "max" {
					return "invalid request: user_id exceeds maximum length of 255"
				}
				if tag == "userid" {
					return "invalid request: user_id contains invalid characters"
				}
				return "invalid request: user_id is invalid"
			case "SaleID":
				if tag == "max" {
					return "invalid request: sale_id exceeds maximum length of 255"
				}
				return "invalid request: sale_id is invalid"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				if tag == "max" {
					return "invalid request: " + field + " exceeds maximum length"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// Purchase handles POST /api/purchase requests to buy one unit of a sale.
// Every response carries a result code and a message; the HTTP status mirrors
// the result so both humans and load generators can branch on either.
func (h *PurchaseHandler) Purchase(c *fiber.Ctx) error {
	started := time.Now()
	var req model.PurchaseRequest

	if err := c.BodyParser(&req); err != nil {
		metrics.ObservePurchase(model.ResultError, time.Since(started))
		return c.Status(fiber.StatusBadRequest).JSON(model.PurchaseResponse{
			Result:  model.ResultError,
			Message: "invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		metrics.ObservePurchase(model.ResultError, time.Since(started))
		return c.Status(fiber.StatusBadRequest).JSON(model.PurchaseResponse{
			Result:  model.ResultError,
			Message: formatPurchaseValidationError(err),
		})
	}

	result, err := h.service.Purchase(c.Context(), req.UserID, req.SaleID)
	if err != nil {
		status, resp := purchaseErrorResponse(err)
		if resp.Result == model.ResultError {
			log.Error().
				Err(err).
				Str("request_id", c.GetRespHeader("X-Request-ID")).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("user_id", req.UserID).
				Str("sale_id", req.SaleID).
				Msg("purchase failed")
		}
		metrics.ObservePurchase(resp.Result, time.Since(started))
		return c.Status(status).JSON(resp)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("user_id", req.UserID).
		Str("sale_id", result.Order.SaleID).
		Int64("order_id", result.Order.ID).
		Int64("remaining_stock", result.RemainingStock).
		Msg("purchase accepted")

	metrics.ObservePurchase(model.ResultSuccess, time.Since(started))
	remaining := result.RemainingStock
	return c.Status(fiber.StatusOK).JSON(model.PurchaseResponse{
		Result:         model.ResultSuccess,
		Message:        "purchase successful",
		Order:          result.Order,
		RemainingStock: &remaining,
	})
}

// purchaseErrorResponse maps service errors to an HTTP status and response body.
func purchaseErrorResponse(err error) (int, model.PurchaseResponse) {
	switch {
	case errors.Is(err, service.ErrAlreadyPurchased):
		return fiber.StatusConflict, model.PurchaseResponse{
			Result:  model.ResultAlreadyPurchased,
			Message: "user has already purchased this sale",
		}
	case errors.Is(err, service.ErrSoldOut):
		return fiber.StatusGone, model.PurchaseResponse{
			Result:  model.ResultSoldOut,
			Message: "sale is sold out",
		}
	case errors.Is(err, service.ErrSaleUpcoming):
		return fiber.StatusForbidden, model.PurchaseResponse{
			Result:     model.ResultSaleNotActive,
			Message:    "sale has not started yet",
			SaleStatus: model.SaleUpcoming,
		}
	case errors.Is(err, service.ErrSaleEnded):
		return fiber.StatusForbidden, model.PurchaseResponse{
			Result:     model.ResultSaleNotActive,
			Message:    "sale has ended",
			SaleStatus: model.SaleEnded,
		}
	case errors.Is(err, service.ErrSaleNotFound):
		return fiber.StatusNotFound, model.PurchaseResponse{
			Result:  model.ResultSaleNotFound,
			Message: "sale not found",
		}
	case errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest, model.PurchaseResponse{
			Result:  model.ResultError,
			Message: "invalid request",
		}
	default:
		return fiber.StatusInternalServerError, model.PurchaseResponse{
			Result:  model.ResultError,
			Message: "internal server error",
		}
	}
}

// GetUserPurchase handles GET /api/purchases/:user_id requests.
// An optional sale_id query parameter selects the sale; the default sale is
// used otherwise.
func (h *PurchaseHandler) GetUserPurchase(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: user_id is required",
		})
	}
	saleID := c.Query("sale_id")

	resp, err := h.service.GetUserPurchase(c.Context(), userID, saleID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("user_id", userID).
			Str("sale_id", saleID).
			Msg("failed to get user purchase")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(resp)
}
