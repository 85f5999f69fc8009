package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentOrderStatus string

const (
	PaymentOrderUnpaid PaymentOrderStatus = "UNPAID"
	PaymentOrderPaid   PaymentOrderStatus = "PAID"
)

// PaymentOrder is the audit row for a gateway order: created when the order
// is opened, flipped to PAID once the signature verifies and the wallet is
// credited. RawPayload keeps the provider's response as returned.
type PaymentOrder struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderOrderID string             `gorm:"type:varchar(100);uniqueIndex" json:"provider_order_id"`
	OwnerID         uuid.UUID          `gorm:"type:uuid;index" json:"owner_id"`
	OwnerKind       OwnerKind          `gorm:"type:varchar(20)" json:"owner_kind"`
	Amount          int64              `json:"amount"`
	Currency        string             `gorm:"type:varchar(3);default:'INR'" json:"currency"`
	Status          PaymentOrderStatus `gorm:"type:varchar(20);default:'UNPAID'" json:"status"`
	PaymentID       string             `gorm:"type:varchar(100)" json:"payment_id"`
	RawPayload      datatypes.JSON     `json:"raw_payload,omitempty"`
	PaidAt          *time.Time         `json:"paid_at"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (p *PaymentOrder) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
