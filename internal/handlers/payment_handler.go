package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/courseloop/platform_be/internal/ratelimit"
	"github.com/courseloop/platform_be/internal/services/payment"
	"github.com/courseloop/platform_be/internal/services/wallet"
)

type PaymentHandler struct {
	Payments *payment.PaymentService
	Limiter  *ratelimit.Limiter
	Log      *zap.Logger
}

func NewPaymentHandler(ps *payment.PaymentService, limiter *ratelimit.Limiter, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{Payments: ps, Limiter: limiter, Log: log}
}

type CreateOrderRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	ownerID, kind, err := getOwner(c)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "amount must be greater than zero"})
	}

	order, err := h.Payments.CreateOrder(req.Amount, ownerID, kind)
	if err != nil {
		h.Log.Error("gateway order creation failed", zap.Error(err))
		return fail500(c, "payment gateway error")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id": order.ID,
			"amount":   order.Amount,
			"currency": order.Currency,
		},
	})
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

// VerifyPayment is the trust boundary for external money. Attempts are
// rate-limited per user so signature forgeries cannot be brute-forced.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	ownerID, kind, err := getOwner(c)
	if err != nil {
		return err
	}

	if !h.Limiter.Allow(c.Context(), "payment_verify", ownerID.String(), 10, time.Minute) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"message": "too many verification attempts, try again later",
		})
	}

	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "missing payment fields"})
	}

	w, err := h.Payments.VerifyAndCredit(req.OrderID, req.PaymentID, req.Signature, req.Amount, ownerID, kind)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid payment signature",
			})
		}
		if errors.Is(err, wallet.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid amount",
			})
		}
		h.Log.Error("payment reconciliation failed", zap.String("payment_id", req.PaymentID), zap.Error(err))
		return fail500(c, "payment could not be credited")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"balance": w.Balance,
		},
	})
}
