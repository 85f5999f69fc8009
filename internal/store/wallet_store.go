package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloop/platform_be/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists for owner")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// WalletStore owns the per-owner balance row and its append-only transaction
// log. ApplyDelta is the only mutation primitive; everything above this
// layer moves money exclusively through it.
type WalletStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewWalletStore(db *gorm.DB) *WalletStore {
	return &WalletStore{DB: db, Now: time.Now}
}

func (s *WalletStore) Find(ownerID uuid.UUID, kind models.OwnerKind) (*models.Wallet, error) {
	var w models.Wallet
	err := s.DB.First(&w, "owner_id = ? AND owner_kind = ?", ownerID, kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *WalletStore) Create(ownerID uuid.UUID, kind models.OwnerKind, role models.Role) (*models.Wallet, error) {
	w := models.Wallet{
		OwnerID:   ownerID,
		OwnerKind: kind,
		Role:      role,
		Balance:   0,
		CreatedAt: s.Now(),
		UpdatedAt: s.Now(),
	}
	if err := s.DB.Create(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	return &w, nil
}

// ApplyDelta adjusts the balance by a signed amount and appends the matching
// ledger entry, in one DB transaction. The balance guard lives in the UPDATE
// itself (WHERE balance + delta >= 0), so two concurrent debits on the same
// wallet can never both pass a pre-check and drive the balance negative.
func (s *WalletStore) ApplyDelta(ownerID uuid.UUID, kind models.OwnerKind, delta int64, description, reference string) (*models.Wallet, error) {
	var out *models.Wallet
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.ApplyDeltaTx(tx, ownerID, kind, delta, description, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyDeltaTx is ApplyDelta running inside a caller-owned transaction, for
// operations that must commit or roll back together with other writes (a
// withdrawal approval's status flip, for one).
func (s *WalletStore) ApplyDeltaTx(tx *gorm.DB, ownerID uuid.UUID, kind models.OwnerKind, delta int64, description, reference string) (*models.Wallet, error) {
	result := tx.Model(&models.Wallet{}).
		Where("owner_id = ? AND owner_kind = ? AND balance + ? >= 0", ownerID, kind, delta).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": s.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing wallet from a rejected overdraft.
		var exists int64
		if err := tx.Model(&models.Wallet{}).
			Where("owner_id = ? AND owner_kind = ?", ownerID, kind).
			Count(&exists).Error; err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, ErrWalletNotFound
		}
		return nil, ErrInsufficientBalance
	}

	var out models.Wallet
	if err := tx.First(&out, "owner_id = ? AND owner_kind = ?", ownerID, kind).Error; err != nil {
		return nil, err
	}

	trxType := models.WalletTrxCredit
	magnitude := delta
	if delta < 0 {
		trxType = models.WalletTrxDebit
		magnitude = -delta
	}
	ledger := models.WalletTransaction{
		WalletID:    out.ID,
		Amount:      magnitude,
		Type:        trxType,
		Description: description,
		Reference:   reference,
		CreatedAt:   s.Now(),
	}
	if err := tx.Create(&ledger).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactions returns one page of the wallet's ledger, newest first.
// Page boundaries may shift while entries are being appended; that is
// acceptable for a history view.
func (s *WalletStore) ListTransactions(ownerID uuid.UUID, kind models.OwnerKind, page, pageSize int) ([]models.WalletTransaction, int64, error) {
	w, err := s.Find(ownerID, kind)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int64
	q := s.DB.Model(&models.WalletTransaction{}).Where("wallet_id = ?", w.ID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// id breaks ties between entries written within the same clock tick, so
	// page boundaries stay stable under equal timestamps.
	var records []models.WalletTransaction
	if err := q.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
