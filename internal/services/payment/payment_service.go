package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/courseloop/platform_be/internal/models"
	"github.com/courseloop/platform_be/internal/services/razorpay"
	"github.com/courseloop/platform_be/internal/services/wallet"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrCreditFailed     = errors.New("payment verified but wallet credit failed")
)

// Gateway is the slice of the payment provider this service needs.
type Gateway interface {
	CreateOrder(amount int64, receipt string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// PaymentService is the only bridge between external money and the ledger:
// nothing is credited unless the gateway signature verifies first.
type PaymentService struct {
	DB      *gorm.DB
	Gateway Gateway
	Wallet  *wallet.WalletService
	Log     *zap.Logger
	Now     func() time.Time
}

func NewPaymentService(db *gorm.DB, gw Gateway, ws *wallet.WalletService, log *zap.Logger) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{DB: db, Gateway: gw, Wallet: ws, Log: log, Now: time.Now}
}

// CreateOrder opens a gateway order and records the audit row for it.
func (s *PaymentService) CreateOrder(amount int64, ownerID uuid.UUID, kind models.OwnerKind) (*razorpay.Order, error) {
	if amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	receipt := "rcpt_" + uuid.NewString()
	order, err := s.Gateway.CreateOrder(amount, receipt)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(order)
	record := models.PaymentOrder{
		ProviderOrderID: order.ID,
		OwnerID:         ownerID,
		OwnerKind:       kind,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          models.PaymentOrderUnpaid,
		RawPayload:      datatypes.JSON(raw),
		CreatedAt:       s.Now(),
		UpdatedAt:       s.Now(),
	}
	if err := s.DB.Create(&record).Error; err != nil {
		// The gateway order exists either way; the client can still pay it.
		s.Log.Error("failed to persist payment order", zap.String("order_id", order.ID), zap.Error(err))
	}

	return order, nil
}

// VerifyAndCredit checks the payment signature and, only on success, credits
// the target wallet (creating it on first use). The gateway's payment id is
// stored as the ledger reference. Replaying the same payment id credits
// again; dedup is the caller's concern today.
func (s *PaymentService) VerifyAndCredit(orderID, paymentID, signature string, amount int64, ownerID uuid.UUID, kind models.OwnerKind) (*models.Wallet, error) {
	if !s.Gateway.VerifySignature(orderID, paymentID, signature) {
		s.Log.Warn("payment signature rejected",
			zap.String("order_id", orderID),
			zap.String("payment_id", paymentID))
		return nil, ErrInvalidSignature
	}

	if _, err := s.Wallet.EnsureAccount(ownerID, kind); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreditFailed, err)
	}

	w, err := s.Wallet.Credit(ownerID, kind, amount, "wallet recharge", paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreditFailed, err)
	}

	s.markOrderPaid(orderID, paymentID)

	s.Log.Info("payment reconciled",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
		zap.Int64("amount", amount))
	return w, nil
}

func (s *PaymentService) markOrderPaid(orderID, paymentID string) {
	now := s.Now()
	result := s.DB.Model(&models.PaymentOrder{}).
		Where("provider_order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     models.PaymentOrderPaid,
			"payment_id": paymentID,
			"paid_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		s.Log.Error("failed to mark payment order paid", zap.String("order_id", orderID), zap.Error(result.Error))
	}
}
