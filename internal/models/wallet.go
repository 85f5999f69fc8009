package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OwnerKind string

const (
	OwnerStudent    OwnerKind = "student"
	OwnerInstructor OwnerKind = "instructor"
	OwnerAdmin      OwnerKind = "admin"
)

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerStudent, OwnerInstructor, OwnerAdmin:
		return true
	}
	return false
}

// Role mirrors OwnerKind as a denormalized reporting field. The two must
// always agree; DefaultRole is the only place a role is derived.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func DefaultRole(kind OwnerKind) Role {
	return Role(kind)
}

// Wallet is the single money-holding record per (owner_id, owner_kind).
// Balance is in minor units (paise) and may only be mutated through the
// wallet store's conditional update, never by loading and saving the row.
type Wallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_owner" json:"owner_id"`
	OwnerKind OwnerKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_owner" json:"owner_kind"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`

	Transactions []WalletTransaction `gorm:"foreignKey:WalletID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return
}

type WalletTrxType string

const (
	WalletTrxCredit WalletTrxType = "credit"
	WalletTrxDebit  WalletTrxType = "debit"
)

// WalletTransaction is an immutable ledger entry. Amount is always a
// positive magnitude; the sign lives in Type.
type WalletTransaction struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	WalletID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"wallet_id"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Type        WalletTrxType `gorm:"type:varchar(20);not null" json:"type"`
	Description string        `gorm:"type:text" json:"description"`
	Reference   string        `gorm:"type:varchar(100);index" json:"reference"` // gateway payment id or generated UUID
	CreatedAt   time.Time     `json:"created_at"`

	Wallet *Wallet `gorm:"foreignKey:WalletID" json:"-"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
