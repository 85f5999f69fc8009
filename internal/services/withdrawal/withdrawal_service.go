package withdrawal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/courseloop/platform_be/internal/directory"
	"github.com/courseloop/platform_be/internal/models"
	"github.com/courseloop/platform_be/internal/services/wallet"
)

var (
	ErrNotFound           = errors.New("withdrawal request not found")
	ErrInvalidState       = errors.New("request is not in a state that allows this transition")
	ErrInvalidBankDetails = errors.New("instructor bank details are incomplete")
	ErrInstructorNotFound = errors.New("instructor not found")
	ErrInsufficientFunds  = wallet.ErrInsufficientFunds
)

// WithdrawalService runs the request state machine:
//
//	(none) --create--> pending --approve--> approved (terminal)
//	                      |
//	                   reject
//	                      v
//	                  rejected --retry--> pending
//
// The instructor's wallet is checked at creation but only debited at
// approval; two overlapping requests can each look valid against the same
// balance, and the approval-time debit is what settles who wins.
type WithdrawalService struct {
	DB          *gorm.DB
	Wallet      *wallet.WalletService
	Instructors directory.InstructorDirectory
	Log         *zap.Logger
	Now         func() time.Time
}

func NewWithdrawalService(db *gorm.DB, ws *wallet.WalletService, instructors directory.InstructorDirectory, log *zap.Logger) *WithdrawalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WithdrawalService{
		DB:          db,
		Wallet:      ws,
		Instructors: instructors,
		Log:         log,
		Now:         time.Now,
	}
}

// Create opens a pending request, snapshotting the instructor's current bank
// details. Funds are not reserved.
func (s *WithdrawalService) Create(instructorID uuid.UUID, amount int64) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	ok, err := s.Instructors.Exists(instructorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInstructorNotFound
	}

	bank, err := s.Instructors.BankAccount(instructorID)
	if err != nil {
		return nil, err
	}
	if !bank.Complete() {
		return nil, ErrInvalidBankDetails
	}

	w, err := s.Wallet.Find(instructorID, models.OwnerInstructor)
	if err != nil {
		return nil, err
	}
	if w.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	req := models.WithdrawalRequest{
		InstructorID: instructorID,
		Amount:       amount,
		BankAccount:  bank,
		Status:       models.WithdrawalPending,
		CreatedAt:    s.Now(),
		UpdatedAt:    s.Now(),
	}
	if err := s.DB.Create(&req).Error; err != nil {
		return nil, err
	}

	s.Log.Info("withdrawal request created",
		zap.String("request_id", req.ID.String()),
		zap.String("instructor_id", instructorID.String()),
		zap.Int64("amount", amount))
	return &req, nil
}

// Approve debits the instructor's wallet and flips the request to approved
// as one unit: both writes run in a single DB transaction, so a failed debit
// leaves the request pending. The request row is re-read inside the
// transaction and the flip is a conditional update guarding both status and
// amount, so a reject-and-retry that changes the amount underneath a racing
// approval makes the flip miss instead of debiting a stale figure.
func (s *WithdrawalService) Approve(requestID, adminID uuid.UUID, remarks string) (*models.WithdrawalRequest, error) {
	reference := uuid.NewString()

	var amount int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var req models.WithdrawalRequest
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if req.Status != models.WithdrawalPending {
			return ErrInvalidState
		}
		amount = req.Amount

		description := fmt.Sprintf("withdrawal payout approved by admin %s", adminID)
		if remarks != "" {
			description += ": " + remarks
		}

		result := tx.Model(&models.WithdrawalRequest{}).
			Where("id = ? AND status = ? AND amount = ?", requestID, models.WithdrawalPending, req.Amount).
			Updates(map[string]interface{}{
				"status":     models.WithdrawalApproved,
				"admin_id":   adminID,
				"remarks":    remarks,
				"updated_at": s.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidState
		}

		// Balance may have dropped since creation; the debit inside this
		// transaction is the real gate, and its failure rolls the flip back.
		_, err := s.Wallet.DebitTx(tx, req.InstructorID, models.OwnerInstructor, req.Amount, description, reference)
		return err
	})
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			s.Log.Warn("withdrawal approval failed: insufficient funds",
				zap.String("request_id", requestID.String()),
				zap.Int64("amount", amount))
		}
		return nil, err
	}

	s.Log.Info("withdrawal approved",
		zap.String("request_id", requestID.String()),
		zap.String("admin_id", adminID.String()),
		zap.Int64("amount", amount))
	return s.GetByID(requestID)
}

// Reject moves a pending request to rejected. Nothing was debited, so there
// is no wallet effect. Remarks are required at the handler boundary; the
// engine only relies on the status precondition.
func (s *WithdrawalService) Reject(requestID, adminID uuid.UUID, remarks string) (*models.WithdrawalRequest, error) {
	if _, err := s.GetByID(requestID); err != nil {
		return nil, err
	}

	result := s.DB.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", requestID, models.WithdrawalPending).
		Updates(map[string]interface{}{
			"status":     models.WithdrawalRejected,
			"admin_id":   adminID,
			"remarks":    remarks,
			"updated_at": s.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvalidState
	}

	s.Log.Info("withdrawal rejected",
		zap.String("request_id", requestID.String()),
		zap.String("admin_id", adminID.String()))
	return s.GetByID(requestID)
}

// Retry returns a rejected request to pending, clearing the previous
// decision. A new amount, when supplied, is re-checked against the current
// balance. The request must belong to the calling instructor; requests
// owned by someone else are reported not found, same as ListForInstructor
// never surfaces them.
func (s *WithdrawalService) Retry(instructorID, requestID uuid.UUID, newAmount *int64) (*models.WithdrawalRequest, error) {
	req, err := s.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req.InstructorID != instructorID {
		return nil, ErrNotFound
	}
	if req.Status != models.WithdrawalRejected {
		return nil, ErrInvalidState
	}

	amount := req.Amount
	if newAmount != nil {
		if *newAmount <= 0 {
			return nil, wallet.ErrInvalidAmount
		}
		amount = *newAmount

		w, err := s.Wallet.Find(req.InstructorID, models.OwnerInstructor)
		if err != nil {
			return nil, err
		}
		if w.Balance < amount {
			return nil, ErrInsufficientFunds
		}
	}

	result := s.DB.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", requestID, models.WithdrawalRejected).
		Updates(map[string]interface{}{
			"status":     models.WithdrawalPending,
			"amount":     amount,
			"admin_id":   nil,
			"remarks":    "",
			"updated_at": s.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvalidState
	}

	s.Log.Info("withdrawal retried",
		zap.String("request_id", requestID.String()),
		zap.Int64("amount", amount))
	return s.GetByID(requestID)
}

func (s *WithdrawalService) GetByID(requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := s.DB.First(&req, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *WithdrawalService) ListForInstructor(instructorID uuid.UUID, page, pageSize int) ([]models.WithdrawalRequest, int64, error) {
	return s.list(s.DB.Where("instructor_id = ?", instructorID), page, pageSize, "created_at DESC, id DESC")
}

// ListAll orders by status priority (pending, rejected, approved) before
// recency, so admins always see actionable requests first regardless of age.
func (s *WithdrawalService) ListAll(page, pageSize int) ([]models.WithdrawalRequest, int64, error) {
	order := "CASE status WHEN 'pending' THEN 0 WHEN 'rejected' THEN 1 ELSE 2 END, created_at DESC, id DESC"
	return s.list(s.DB, page, pageSize, order)
}

func (s *WithdrawalService) list(q *gorm.DB, page, pageSize int, order string) ([]models.WithdrawalRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	if err := q.Model(&models.WithdrawalRequest{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.WithdrawalRequest
	if err := q.Model(&models.WithdrawalRequest{}).
		Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
