package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/courseloop/platform_be/internal/services/wallet"
	"github.com/courseloop/platform_be/internal/services/withdrawal"
)

type WithdrawalHandler struct {
	Withdrawals *withdrawal.WithdrawalService
}

func NewWithdrawalHandler(ws *withdrawal.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{Withdrawals: ws}
}

type CreateWithdrawalRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	instructorID, err := getAuth(c)
	if err != nil {
		return err
	}

	var req CreateWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "amount must be greater than zero"})
	}

	request, err := h.Withdrawals.Create(instructorID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrInvalidBankDetails):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "complete your bank details before requesting a withdrawal",
			})
		case errors.Is(err, withdrawal.ErrInsufficientFunds), errors.Is(err, wallet.ErrAccountNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "insufficient wallet balance",
			})
		case errors.Is(err, withdrawal.ErrInstructorNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "instructor not found",
			})
		}
		return fail500(c, "failed to create withdrawal request")
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}

func (h *WithdrawalHandler) ListMine(c *fiber.Ctx) error {
	instructorID, err := getAuth(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	requests, total, err := h.Withdrawals.ListForInstructor(instructorID, page, limit)
	if err != nil {
		return fail500(c, "failed to load withdrawal requests")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"requests": requests,
			"total":    total,
			"page":     page,
			"limit":    limit,
		},
	})
}

type RetryWithdrawalRequest struct {
	Amount *int64 `json:"amount" validate:"omitempty,gt=0"`
}

func (h *WithdrawalHandler) Retry(c *fiber.Ctx) error {
	instructorID, err := getAuth(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request id"})
	}

	var req RetryWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "amount must be greater than zero"})
	}

	request, err := h.Withdrawals.Retry(instructorID, requestID, req.Amount)
	if err != nil {
		return h.decisionError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}

func (h *WithdrawalHandler) ListAll(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	requests, total, err := h.Withdrawals.ListAll(page, limit)
	if err != nil {
		return fail500(c, "failed to load withdrawal requests")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"requests": requests,
			"total":    total,
			"page":     page,
			"limit":    limit,
		},
	})
}

type DecideWithdrawalRequest struct {
	Remarks string `json:"remarks"`
}

func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	adminID, err := getAuth(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request id"})
	}

	var req DecideWithdrawalRequest
	_ = c.BodyParser(&req) // remarks optional on approval

	request, err := h.Withdrawals.Approve(requestID, adminID, strings.TrimSpace(req.Remarks))
	if err != nil {
		return h.decisionError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}

func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	adminID, err := getAuth(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request id"})
	}

	var req DecideWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}

	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "remarks are required when rejecting a request",
		})
	}

	request, err := h.Withdrawals.Reject(requestID, adminID, remarks)
	if err != nil {
		return h.decisionError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}

// decisionError maps the engine's expected outcomes onto explanatory
// responses. Insufficient funds on approval is a rejected action, not a 500.
func (h *WithdrawalHandler) decisionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, withdrawal.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "withdrawal request not found",
		})
	case errors.Is(err, withdrawal.ErrInvalidState):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "request is not in a valid state for this action",
		})
	case errors.Is(err, withdrawal.ErrInsufficientFunds):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "approval failed, insufficient funds",
		})
	case errors.Is(err, wallet.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "amount must be greater than zero",
		})
	}
	return fail500(c, "failed to process withdrawal request")
}
