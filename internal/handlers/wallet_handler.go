package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/courseloop/platform_be/internal/models"
	"github.com/courseloop/platform_be/internal/services/wallet"
)

var validate = validator.New()

type WalletHandler struct {
	Wallet *wallet.WalletService
}

func NewWalletHandler(ws *wallet.WalletService) *WalletHandler {
	return &WalletHandler{Wallet: ws}
}

// GetMyWallet returns the caller's wallet, creating it lazily so a brand new
// user sees a zero balance instead of a 404.
func (h *WalletHandler) GetMyWallet(c *fiber.Ctx) error {
	ownerID, kind, err := getOwner(c)
	if err != nil {
		return err
	}

	w, err := h.Wallet.EnsureAccount(ownerID, kind)
	if err != nil {
		return fail500(c, "failed to load wallet")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"balance":    w.Balance,
			"role":       w.Role,
			"owner_kind": w.OwnerKind,
		},
	})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	ownerID, kind, err := getOwner(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	records, total, err := h.Wallet.GetPaginatedTransactions(ownerID, kind, page, limit)
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "wallet not found",
			})
		}
		return fail500(c, "failed to load transactions")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"transactions": records,
			"total":        total,
			"page":         page,
			"limit":        limit,
		},
	})
}

func fail500(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	rawID, ok := c.Locals("userId").(string)
	if !ok || rawID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	uID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id")
	}
	return uID, nil
}

// getOwner maps the JWT role local onto the wallet owner kind.
func getOwner(c *fiber.Ctx) (uuid.UUID, models.OwnerKind, error) {
	ownerID, err := getAuth(c)
	if err != nil {
		return uuid.Nil, "", err
	}

	role, _ := c.Locals("role").(string)
	kind := models.OwnerKind(role)
	if !kind.Valid() {
		return uuid.Nil, "", fiber.NewError(fiber.StatusForbidden, "unknown role")
	}
	return ownerID, kind, nil
}
