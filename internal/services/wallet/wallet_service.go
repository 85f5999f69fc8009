package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/courseloop/platform_be/internal/directory"
	"github.com/courseloop/platform_be/internal/models"
	"github.com/courseloop/platform_be/internal/store"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// Re-exported store outcomes so callers branch on one package.
	ErrInsufficientFunds = store.ErrInsufficientBalance
	ErrAccountNotFound   = store.ErrWalletNotFound
	ErrOwnerNotFound     = directory.ErrOwnerNotFound
)

// WalletService is the public money-movement API. It is the only component
// allowed to mutate balances, and every mutation goes through the store's
// atomic ApplyDelta.
type WalletService struct {
	Store    *store.WalletStore
	Resolver directory.Resolver
	Log      *zap.Logger
}

func NewWalletService(st *store.WalletStore, resolver directory.Resolver, log *zap.Logger) *WalletService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WalletService{Store: st, Resolver: resolver, Log: log}
}

// Credit adds funds and appends a credit ledger entry.
func (s *WalletService) Credit(ownerID uuid.UUID, kind models.OwnerKind, amount int64, description, reference string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.Store.ApplyDelta(ownerID, kind, amount, description, reference)
	if err != nil {
		return nil, err
	}
	s.Log.Info("wallet credited",
		zap.String("owner_id", ownerID.String()),
		zap.String("owner_kind", string(kind)),
		zap.Int64("amount", amount),
		zap.String("reference", reference))
	return w, nil
}

// Debit removes funds. An overdraft comes back as ErrInsufficientFunds, an
// expected outcome callers turn into a user-facing message.
func (s *WalletService) Debit(ownerID uuid.UUID, kind models.OwnerKind, amount int64, description, reference string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.Store.ApplyDelta(ownerID, kind, -amount, description, reference)
	if errors.Is(err, store.ErrInsufficientBalance) {
		s.Log.Warn("debit rejected: insufficient balance",
			zap.String("owner_id", ownerID.String()),
			zap.Int64("amount", amount))
		return nil, ErrInsufficientFunds
	}
	if err != nil {
		return nil, err
	}
	s.Log.Info("wallet debited",
		zap.String("owner_id", ownerID.String()),
		zap.String("owner_kind", string(kind)),
		zap.Int64("amount", amount),
		zap.String("reference", reference))
	return w, nil
}

// DebitTx is Debit inside a caller-owned DB transaction, so a debit can
// commit or roll back together with the caller's own writes.
func (s *WalletService) DebitTx(tx *gorm.DB, ownerID uuid.UUID, kind models.OwnerKind, amount int64, description, reference string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.Store.ApplyDeltaTx(tx, ownerID, kind, -amount, description, reference)
	if errors.Is(err, store.ErrInsufficientBalance) {
		return nil, ErrInsufficientFunds
	}
	return w, err
}

// Initialize creates the wallet for an owner with a zero balance. Role is
// derived from the kind so the denormalized pair cannot disagree.
func (s *WalletService) Initialize(ownerID uuid.UUID, kind models.OwnerKind) (*models.Wallet, error) {
	return s.Store.Create(ownerID, kind, models.DefaultRole(kind))
}

// EnsureAccount is the single lazy-creation path: find, and initialize on a
// miss. Callers that used to inline "wallet missing, create it" go through
// here instead.
func (s *WalletService) EnsureAccount(ownerID uuid.UUID, kind models.OwnerKind) (*models.Wallet, error) {
	w, err := s.Store.Find(ownerID, kind)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrWalletNotFound) {
		return nil, err
	}
	w, err = s.Initialize(ownerID, kind)
	if errors.Is(err, store.ErrWalletExists) {
		// Lost the creation race; the other caller's wallet is ours to use.
		return s.Store.Find(ownerID, kind)
	}
	return w, err
}

func (s *WalletService) Find(ownerID uuid.UUID, kind models.OwnerKind) (*models.Wallet, error) {
	return s.Store.Find(ownerID, kind)
}

func (s *WalletService) GetPaginatedTransactions(ownerID uuid.UUID, kind models.OwnerKind, page, pageSize int) ([]models.WalletTransaction, int64, error) {
	return s.Store.ListTransactions(ownerID, kind, page, pageSize)
}

// CreditByLookupKey resolves an admin's login identifier to its owner id and
// credits the admin wallet, creating it on first use. Used for
// system-initiated credits (platform share of a sale) where the caller only
// knows a business key.
func (s *WalletService) CreditByLookupKey(lookupKey string, amount int64, description, reference string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	adminID, err := s.Resolver.ResolveAdmin(lookupKey)
	if err != nil {
		if errors.Is(err, directory.ErrOwnerNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("resolve admin %q: %w", lookupKey, err)
	}
	if _, err := s.EnsureAccount(adminID, models.OwnerAdmin); err != nil {
		return nil, err
	}
	return s.Credit(adminID, models.OwnerAdmin, amount, description, reference)
}
